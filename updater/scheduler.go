package updater

import (
	"math/rand"
	"sync"
	"time"

	"github.com/itchio/warden/database"
	"github.com/itchio/warden/database/models"
	"github.com/itchio/wharf/state"
)

const (
	// DefaultBaseInterval is the fixed part of the pause between
	// scheduler passes.
	DefaultBaseInterval = 20 * time.Minute
	// DefaultMaxJitter bounds the random part added on top, so a
	// fleet of clients doesn't hit the API in lockstep.
	DefaultMaxJitter = 10 * time.Minute
	// DefaultItemDelay spaces out per-cave checks within one pass.
	DefaultItemDelay = 25 * time.Millisecond
)

// Scheduler runs the process-wide update loop: sweep all caves, sleep
// for the base interval plus jitter, repeat. It runs for the life of
// the process and has no stop primitive.
type Scheduler struct {
	Checker  *Checker
	DB       *database.DB
	Consumer *state.Consumer

	BaseInterval time.Duration
	MaxJitter    time.Duration
	ItemDelay    time.Duration

	// swapped out in tests
	sleep  func(d time.Duration)
	jitter func(max time.Duration) time.Duration

	mutex   sync.Mutex
	running bool
}

func NewScheduler(checker *Checker, db *database.DB, consumer *state.Consumer) *Scheduler {
	return &Scheduler{
		Checker:  checker,
		DB:       db,
		Consumer: consumer,

		BaseInterval: DefaultBaseInterval,
		MaxJitter:    DefaultMaxJitter,
		ItemDelay:    DefaultItemDelay,

		sleep: time.Sleep,
		jitter: func(max time.Duration) time.Duration {
			if max <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(max)))
		},
	}
}

// Start launches the polling loop. It is safe to call any number of
// times: only the first call starts anything.
func (s *Scheduler) Start() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		s.Consumer.Debugf("Update scheduler already running")
		return
	}
	s.running = true

	go s.loop()
}

func (s *Scheduler) IsRunning() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running
}

func (s *Scheduler) loop() {
	for {
		s.CheckAll()
		s.sleep(s.pause())
	}
}

// pause is how long to wait between two passes: always at least
// BaseInterval, at most BaseInterval+MaxJitter.
func (s *Scheduler) pause() time.Duration {
	return s.BaseInterval + s.jitter(s.MaxJitter)
}

// CheckAll runs one pass over every installed cave, pausing briefly
// between items. A failing item is logged and the pass moves on.
func (s *Scheduler) CheckAll() {
	caves, err := s.DB.AllCaves()
	if err != nil {
		s.Consumer.Warnf("Could not list caves for update pass: %v", err)
		return
	}

	s.Consumer.Infof("Checking %d installed items for updates", len(caves))

	for _, cave := range caves {
		s.checkOne(cave)
		s.sleep(s.ItemDelay)
	}
}

func (s *Scheduler) checkOne(cave *models.Cave) {
	defer func() {
		if r := recover(); r != nil {
			s.Consumer.Warnf("Update check panicked for cave %s: %v", cave.ID, r)
		}
	}()

	// keep quiet unless the check fails, then dump the whole story
	ml := newMemoryLogger()
	res := s.Checker.Check(ml.Consumer(), cave, false)
	if res.Outcome == OutcomeFailed {
		ml.Copy(s.Consumer)
		s.Consumer.Warnf("Update check failed for cave %s: %s", cave.ID, res)
	}
}

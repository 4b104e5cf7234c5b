package pipeline

import (
	"sync"

	"github.com/google/uuid"
)

type TaskKind string

const (
	TaskKindInstall TaskKind = "install"
	TaskKindLaunch  TaskKind = "launch"
)

// A Task is one in-flight unit of work tracked by the registry.
type Task struct {
	ID     string
	Kind   TaskKind
	CaveID string
	GameID int64
}

// Registry tracks in-flight tasks, keyed by task id. It answers the
// one question the rest of the system asks: is something already
// happening for this game?
type Registry struct {
	mutex sync.Mutex
	tasks map[string]*Task
}

func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]*Task),
	}
}

// Register adds a task and returns it. The caller must Unregister it
// when the work ends, success or not.
func (r *Registry) Register(kind TaskKind, caveID string, gameID int64) *Task {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	t := &Task{
		ID:     uuid.New().String(),
		Kind:   kind,
		CaveID: caveID,
		GameID: gameID,
	}
	r.tasks[t.ID] = t
	return t
}

func (r *Registry) Unregister(t *Task) {
	if t == nil {
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.tasks, t.ID)
}

// IsGameBusy reports whether any task of the given kinds is in
// flight for the game. With no kinds given, any task counts.
func (r *Registry) IsGameBusy(gameID int64, kinds ...TaskKind) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, t := range r.tasks {
		if t.GameID != gameID {
			continue
		}
		if len(kinds) == 0 {
			return true
		}
		for _, k := range kinds {
			if t.Kind == k {
				return true
			}
		}
	}
	return false
}

func (r *Registry) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.tasks)
}

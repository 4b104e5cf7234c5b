package updater

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	itchio "github.com/itchio/go-itchio"
	"github.com/itchio/httpkit/neterr"
	"github.com/itchio/ox"
	"github.com/itchio/warden/database"
	"github.com/itchio/warden/database/models"
	"github.com/itchio/warden/harness"
	"github.com/itchio/warden/manager"
	"github.com/itchio/warden/pipeline"
	"github.com/itchio/wharf/state"
	"github.com/pkg/errors"
)

// A TaskTracker answers whether something is already happening for a
// game. *pipeline.Registry satisfies it.
type TaskTracker interface {
	IsGameBusy(gameID int64, kinds ...pipeline.TaskKind) bool
}

// A Checker performs update checks for installed caves.
type Checker struct {
	DB       *database.DB
	Harness  harness.Harness
	Runtime  *ox.Runtime
	Tasks    TaskTracker
	Queue    pipeline.Queue
	Notifier pipeline.Notifier

	// overrides the API-backed resolver, mostly for tests
	MakeResolver func(client *itchio.Client, credentials itchio.GameCredentials) Resolver

	// 0 means DefaultGameCacheTTL
	GameCacheTTL time.Duration
}

func NewChecker(db *database.DB, h harness.Harness, tasks TaskTracker, queue pipeline.Queue, notifier pipeline.Notifier) *Checker {
	return &Checker{
		DB:       db,
		Harness:  h,
		Tasks:    tasks,
		Queue:    queue,
		Notifier: notifier,
	}
}

func (c *Checker) runtime() *ox.Runtime {
	if c.Runtime != nil {
		return c.Runtime
	}
	return ox.CurrentRuntime()
}

func (c *Checker) resolverFor(client *itchio.Client, credentials itchio.GameCredentials) Resolver {
	if c.MakeResolver != nil {
		return c.MakeResolver(client, credentials)
	}
	return NewResolver(client, credentials)
}

// Check runs one update check for one cave. It never panics past its
// own boundary: anything that goes wrong comes back as a failed
// result. In noisy mode, network trouble is also surfaced to the
// user; in quiet mode it only shows up in the result.
func (c *Checker) Check(consumer *state.Consumer, cave *models.Cave, noisy bool) *CheckResult {
	profile, err := c.DB.CurrentProfile()
	if err != nil {
		return failed(ErrorKindGeneric, errors.WithStack(err))
	}
	if profile == nil {
		return failed(ErrorKindGeneric, errors.New("no connected profile"))
	}

	if cave.InstalledByID != 0 && cave.InstalledByID != profile.UserID {
		consumer.Debugf("Cave %s was installed by user %d, we are %d, skipping", cave.ID, cave.InstalledByID, profile.UserID)
		return skipped(SkipReasonWrongUser)
	}

	if !cave.Launchable {
		consumer.Debugf("Cave %s is not launchable, skipping", cave.ID)
		return skipped(SkipReasonNotLaunchable)
	}

	if cave.GameID == 0 {
		consumer.Debugf("Cave %s has no game, skipping", cave.ID)
		return skipped(SkipReasonNoGame)
	}

	client, err := c.Harness.ClientFromCredentials(profile)
	if err != nil {
		return failed(ErrorKindGeneric, errors.WithStack(err))
	}

	credentials, skipRes := c.credentialsForCave(consumer, cave, profile)
	if skipRes != nil {
		return skipRes
	}

	game, err := c.FetchGame(consumer, client, cave.GameID, credentials)
	if err != nil {
		return c.fail(consumer, err, fmt.Sprintf("game %d", cave.GameID), noisy)
	}

	if c.Tasks != nil && c.Tasks.IsGameBusy(game.ID, pipeline.TaskKindLaunch) {
		consumer.Debugf("%s is running, not proposing updates", game.Title)
		return skipped(SkipReasonGameRunning)
	}

	uploadsRes, err := client.ListGameUploads(itchio.ListGameUploadsParams{
		GameID:      game.ID,
		Credentials: credentials,
	})
	if err != nil {
		return c.fail(consumer, err, game.Title, noisy)
	}

	narrowed := manager.NarrowDownUploads(consumer, game, uploadsRes.Uploads, c.runtime())
	candidates := narrowed.Uploads
	if len(candidates) == 0 {
		res := failed(ErrorKindNoUploads, errors.Errorf("no uploads found for %s", game.Title))
		res.Game = game
		return res
	}

	cutoff := time.Unix(0, 0).UTC()
	if cave.InstalledAt != nil {
		cutoff = *cave.InstalledAt
	}

	var recent []*itchio.Upload
	for _, u := range candidates {
		if u.UpdatedAt == nil {
			consumer.Debugf("Upload %d carries no timestamp, ignoring", u.ID)
			continue
		}
		if u.UpdatedAt.After(cutoff) {
			recent = append(recent, u)
		}
	}

	if cave.UploadID != 0 && cave.BuildID != 0 {
		installed := findUploadByID(candidates, cave.UploadID)
		switch {
		case installed == nil:
			consumer.Warnf("Installed upload %d is gone from the candidate list, falling back to timestamp comparison", cave.UploadID)
		case installed.Build == nil:
			consumer.Warnf("Installed upload %d no longer carries builds, falling back to timestamp comparison", cave.UploadID)
		case installed.Build.ID != cave.BuildID:
			return c.queueIncremental(consumer, client, cave, game, installed, credentials)
		default:
			consumer.Debugf("%s: build %d is still current", game.Title, cave.BuildID)
			return &CheckResult{Outcome: OutcomeNoUpgrade, Game: game}
		}
	}

	if len(recent) == 0 {
		consumer.Debugf("%s: no uploads newer than %s", game.Title, cutoff)
		return &CheckResult{Outcome: OutcomeNoUpgrade, Game: game}
	}

	if len(recent) > 1 {
		return c.promptChoice(consumer, cave, game, recent, credentials)
	}

	u := recent[0]
	newlyWharf := u.Build != nil && cave.BuildID == 0
	if u.ID == cave.UploadID && !newlyWharf {
		consumer.Debugf("%s: upload %d was touched but nothing actually changed", game.Title, u.ID)
		return &CheckResult{Outcome: OutcomeNoUpgrade, Game: game}
	}

	req := fullRequest(cave, game, u, credentials, false)
	if err := c.Queue.Queue(req); err != nil {
		return failed(ErrorKindGeneric, errors.WithStack(err))
	}
	consumer.Infof("↑ %s: queued update to %s (%s)", game.Title, uploadLabel(u), humanize.IBytes(uint64(u.Size)))
	return &CheckResult{Outcome: OutcomeUpgraded, Game: game, Request: req}
}

// queueIncremental resolves a patch chain and queues it. Resolver
// failures stay recoverable: the cave's recorded build is untouched
// until a pipeline run actually succeeds.
func (c *Checker) queueIncremental(consumer *state.Consumer, client *itchio.Client, cave *models.Cave, game *itchio.Game, upload *itchio.Upload, credentials itchio.GameCredentials) *CheckResult {
	plan, err := c.resolverFor(client, credentials).Resolve(cave.BuildID, upload)
	if err != nil {
		res := failed(ErrorKindResolver, errors.WithMessage(err, fmt.Sprintf("resolving upgrade path for %s", game.Title)))
		res.Game = game
		return res
	}

	req := &pipeline.InstallRequest{
		CaveID:        cave.ID,
		Game:          game,
		Upload:        upload,
		Build:         upload.Build,
		Reason:        pipeline.DownloadReasonUpdate,
		Incremental:   true,
		UpgradePath:   plan.Builds,
		TotalSize:     plan.TotalSize,
		DownloadKeyID: credentials.DownloadKeyID,
		InstallFolder: cave.InstallFolder,
	}
	if err := c.Queue.Queue(req); err != nil {
		return failed(ErrorKindGeneric, errors.WithStack(err))
	}

	consumer.Infof("↑ %s: build %d → %d, %d patches (%s)",
		game.Title, cave.BuildID, upload.Build.ID,
		len(plan.Builds), humanize.IBytes(uint64(plan.TotalSize)))
	return &CheckResult{Outcome: OutcomeUpgraded, Game: game, Request: req}
}

// promptChoice emits one option per ambiguous upload, plus the
// cancel option the notifier provides on its own. Nothing is queued
// until the user picks.
func (c *Checker) promptChoice(consumer *state.Consumer, cave *models.Cave, game *itchio.Game, recent []*itchio.Upload, credentials itchio.GameCredentials) *CheckResult {
	options := make([]*pipeline.ChoiceOption, 0, len(recent))
	for _, u := range recent {
		u := u
		label := fmt.Sprintf("%s — %s", uploadLabel(u), humanize.IBytes(uint64(u.Size)))
		if u.UpdatedAt != nil {
			label = fmt.Sprintf("%s, updated %s", label, humanize.Time(*u.UpdatedAt))
		}
		options = append(options, &pipeline.ChoiceOption{
			Label: label,
			Pick: func() error {
				return c.Queue.Queue(fullRequest(cave, game, u, credentials, true))
			},
		})
	}

	consumer.Infof("%s: %d uploads look like updates, asking the user", game.Title, len(recent))
	c.Notifier.PromptChoice(
		game.Title,
		fmt.Sprintf("Several updates are available for %s, pick one:", game.Title),
		options,
	)
	return &CheckResult{Outcome: OutcomeUpgraded, Game: game, Prompted: true}
}

func (c *Checker) fail(consumer *state.Consumer, err error, label string, noisy bool) *CheckResult {
	kind := ErrorKindGeneric
	if neterr.IsNetworkError(errors.Cause(err)) {
		kind = ErrorKindNetwork
		if noisy && c.Notifier != nil {
			c.Notifier.Notify(fmt.Sprintf("Could not reach itch.io while checking %s for updates", label))
		}
	}
	consumer.Warnf("Check failed for %s: %+v", label, err)
	return failed(kind, err)
}

// credentialsForCave picks the download key to present to the API:
// the cave's own key when it is ours, else any key we hold for the
// game, else none. A key owned by someone else is a skip, not an
// error.
func (c *Checker) credentialsForCave(consumer *state.Consumer, cave *models.Cave, profile *models.Profile) (itchio.GameCredentials, *CheckResult) {
	if cave.DownloadKeyID != 0 {
		key, err := c.DB.DownloadKeyByID(cave.DownloadKeyID)
		if err != nil {
			return itchio.GameCredentials{}, failed(ErrorKindGeneric, errors.WithStack(err))
		}
		if key != nil {
			if key.OwnerID != 0 && key.OwnerID != profile.UserID {
				consumer.Debugf("Download key %d belongs to user %d, not to us (%d)", key.ID, key.OwnerID, profile.UserID)
				return itchio.GameCredentials{}, skipped(SkipReasonKeyOwnerMismatch)
			}
			return itchio.GameCredentials{DownloadKeyID: key.ID}, nil
		}
		consumer.Warnf("Cave %s references missing download key %d", cave.ID, cave.DownloadKeyID)
	}

	keys, err := c.DB.DownloadKeysByGameID(cave.GameID)
	if err != nil {
		return itchio.GameCredentials{}, failed(ErrorKindGeneric, errors.WithStack(err))
	}
	for _, key := range keys {
		if key.OwnerID == 0 || key.OwnerID == profile.UserID {
			return itchio.GameCredentials{DownloadKeyID: key.ID}, nil
		}
	}

	return itchio.GameCredentials{}, nil
}

func fullRequest(cave *models.Cave, game *itchio.Game, upload *itchio.Upload, credentials itchio.GameCredentials, handPicked bool) *pipeline.InstallRequest {
	return &pipeline.InstallRequest{
		CaveID:        cave.ID,
		Game:          game,
		Upload:        upload,
		Build:         upload.Build,
		Reason:        pipeline.DownloadReasonUpdate,
		HandPicked:    handPicked,
		TotalSize:     upload.Size,
		DownloadKeyID: credentials.DownloadKeyID,
		InstallFolder: cave.InstallFolder,
	}
}

func findUploadByID(uploads []*itchio.Upload, id int64) *itchio.Upload {
	for _, u := range uploads {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func uploadLabel(u *itchio.Upload) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Filename
}

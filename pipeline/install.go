package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	itchio "github.com/itchio/go-itchio"
	"github.com/itchio/ox"
	"github.com/itchio/warden/database"
	"github.com/itchio/warden/harness"
	"github.com/itchio/warden/manager"
	"github.com/itchio/wharf/state"
	"github.com/pkg/errors"
)

// State is one stop of the install pipeline. States only ever move
// forward; a failing stage leaves the install parked there.
type State string

const (
	StatePending         State = "pending"
	StateSearchingUpload State = "searching-upload"
	StateDownloading     State = "downloading"
	StateExtracting      State = "extracting"
	StateConfiguring     State = "configuring"
	StateRunning         State = "running"
)

var stateOrder = map[State]int{
	StatePending:         0,
	StateSearchingUpload: 1,
	StateDownloading:     2,
	StateExtracting:      3,
	StateConfiguring:     4,
	StateRunning:         5,
}

// An Install drives one request through
// pending → searching-upload → downloading → extracting → configuring → running.
type Install struct {
	DB       *database.DB
	Harness  harness.Harness
	Runtime  *ox.Runtime
	Registry *Registry

	Downloader   Downloader
	Extractor    Extractor
	Configurator Configurator
	Launcher     Launcher
	Notifier     Notifier
	Patcher      Patcher

	state State
	sink  *ProgressSink
}

func NewInstall(db *database.DB, h harness.Harness, registry *Registry) *Install {
	return &Install{
		DB:       db,
		Harness:  h,
		Registry: registry,
		state:    StatePending,
		sink:     NewProgressSink(),
	}
}

func (i *Install) State() State {
	return i.state
}

// Events exposes this install's progress stream.
func (i *Install) Events() <-chan Event {
	return i.sink.Events()
}

func (i *Install) setState(consumer *state.Consumer, next State) {
	if stateOrder[next] <= stateOrder[i.state] {
		// states never move backward, this is a programming error
		panic(fmt.Sprintf("install state would move from %s back to %s", i.state, next))
	}
	consumer.Debugf("install: %s → %s", i.state, next)
	i.state = next
}

// Perform runs the whole pipeline for one request. A nil return with
// state short of running means there was nothing to install (no
// compatible uploads), which is a normal outcome, not an error.
func (i *Install) Perform(consumer *state.Consumer, req *InstallRequest) error {
	gameID := int64(0)
	if req.Game != nil {
		gameID = req.Game.ID
	}
	task := i.Registry.Register(TaskKindInstall, req.CaveID, gameID)
	defer i.Registry.Unregister(task)

	err := i.perform(consumer, req)
	if err != nil {
		i.sink.Fail(err)
		return err
	}
	// a halt with nothing to install still terminates the stream
	i.sink.Done()
	return nil
}

func (i *Install) perform(consumer *state.Consumer, req *InstallRequest) error {
	if req.Game == nil {
		return errors.New("install request has no game")
	}

	profile, err := i.DB.CurrentProfile()
	if err != nil {
		return errors.WithStack(err)
	}
	if profile == nil {
		return errors.New("no connected profile")
	}

	client, err := i.Harness.ClientFromCredentials(profile)
	if err != nil {
		return errors.WithStack(err)
	}

	credentials := itchio.GameCredentials{DownloadKeyID: req.DownloadKeyID}

	i.setState(consumer, StateSearchingUpload)
	upload, halted, err := i.searchUpload(consumer, client, req, credentials)
	if err != nil {
		return err
	}
	if halted {
		return nil
	}
	req.Upload = upload
	if req.Build == nil {
		req.Build = upload.Build
	}

	i.setState(consumer, StateDownloading)
	if req.Incremental {
		err = i.downloadPatches(consumer, client, req, credentials)
	} else {
		err = i.downloadArchive(consumer, client, req, credentials)
	}
	if err != nil {
		return err
	}
	i.Notifier.Notify(fmt.Sprintf("%s is done downloading", req.Game.Title))

	i.setState(consumer, StateExtracting)
	if !req.Incremental {
		archivePath := i.archivePath(req)
		err = i.Extractor.Extract(consumer, archivePath, req.InstallFolder)
		if err != nil {
			i.Notifier.Notify(fmt.Sprintf("Could not unpack %s", req.Game.Title))
			return errors.WithMessage(err, fmt.Sprintf("extracting %s", req.Game.Title))
		}
	} else {
		// patches were applied in place during the download stage
		consumer.Debugf("incremental install, nothing to extract")
	}

	i.setState(consumer, StateConfiguring)
	executables, err := i.Configurator.Configure(consumer, req.InstallFolder)
	if err != nil {
		i.Notifier.Notify(fmt.Sprintf("Could not configure %s", req.Game.Title))
		return errors.WithMessage(err, fmt.Sprintf("configuring %s", req.Game.Title))
	}
	if len(executables) == 0 {
		i.Notifier.Notify(fmt.Sprintf("Could not find anything to run in %s", req.Game.Title))
		return errors.Errorf("no executables found in %s", req.InstallFolder)
	}

	err = i.commit(consumer, profile, req)
	if err != nil {
		return err
	}

	i.setState(consumer, StateRunning)
	launchTask := i.Registry.Register(TaskKindLaunch, req.CaveID, req.Game.ID)
	err = i.Launcher.Launch(consumer, executables[0], func() {
		i.Registry.Unregister(launchTask)
	})
	if err != nil {
		i.Registry.Unregister(launchTask)
		return errors.WithMessage(err, fmt.Sprintf("launching %s", req.Game.Title))
	}

	return nil
}

// searchUpload picks the upload to install. Requests queued by the
// update checker already carry one; fresh installs go through the
// platform filter. Zero compatible uploads halts the pipeline
// without an error.
func (i *Install) searchUpload(consumer *state.Consumer, client *itchio.Client, req *InstallRequest, credentials itchio.GameCredentials) (*itchio.Upload, bool, error) {
	if req.Upload != nil {
		consumer.Debugf("using pre-selected upload %d", req.Upload.ID)
		return req.Upload, false, nil
	}

	uploadsRes, err := client.ListGameUploads(itchio.ListGameUploadsParams{
		GameID:      req.Game.ID,
		Credentials: credentials,
	})
	if err != nil {
		return nil, false, errors.WithStack(err)
	}

	runtime := i.Runtime
	if runtime == nil {
		runtime = ox.CurrentRuntime()
	}

	narrowed := manager.NarrowDownUploads(consumer, req.Game, uploadsRes.Uploads, runtime)
	if len(narrowed.Uploads) == 0 {
		i.Notifier.Notify(fmt.Sprintf("No compatible version of %s for this machine", req.Game.Title))
		consumer.Infof("no compatible uploads for %s, halting", req.Game.Title)
		return nil, true, nil
	}
	return narrowed.Uploads[0], false, nil
}

// downloadArchive fetches the full archive, unless it's already
// sitting at the destination from an earlier run. Presence of the
// file is the whole resume check, there is no integrity pass.
func (i *Install) downloadArchive(consumer *state.Consumer, client *itchio.Client, req *InstallRequest, credentials itchio.GameCredentials) error {
	destPath := i.archivePath(req)

	if _, err := os.Stat(destPath); err == nil {
		consumer.Infof("%s already exists, skipping transfer", filepath.Base(destPath))
		return nil
	}

	err := os.MkdirAll(filepath.Dir(destPath), 0755)
	if err != nil {
		return errors.WithStack(err)
	}

	url := client.MakeUploadDownloadURL(itchio.MakeUploadDownloadURLParams{
		UploadID:    req.Upload.ID,
		Credentials: credentials,
	})

	err = i.Downloader.Download(consumer, url, destPath, i.sink.Publish)
	if err != nil {
		return errors.WithMessage(err, fmt.Sprintf("downloading %s", req.Game.Title))
	}
	return nil
}

// downloadPatches walks the upgrade path in order, fetching and
// applying each patch. Stopping partway leaves the install at a
// valid intermediate build.
func (i *Install) downloadPatches(consumer *state.Consumer, client *itchio.Client, req *InstallRequest, credentials itchio.GameCredentials) error {
	if len(req.UpgradePath) == 0 {
		return errors.New("incremental install request with an empty upgrade path")
	}
	if i.Patcher == nil {
		return errors.New("incremental install request but no patcher is wired")
	}

	total := len(req.UpgradePath)
	for n, build := range req.UpgradePath {
		consumer.Infof("patch %d of %d: build %d", n+1, total, build.ID)

		url := client.MakeBuildDownloadURL(itchio.MakeBuildDownloadURLParams{
			BuildID:     build.ID,
			Type:        itchio.BuildFileTypePatch,
			Credentials: credentials,
		})

		patchPath := filepath.Join(req.StagingFolder, fmt.Sprintf("patch-%d.pwr", build.ID))
		err := os.MkdirAll(filepath.Dir(patchPath), 0755)
		if err != nil {
			return errors.WithStack(err)
		}

		base := float64(n) / float64(total)
		err = i.Downloader.Download(consumer, url, patchPath, func(p float64) {
			i.sink.Publish(base + p/float64(total))
		})
		if err != nil {
			return errors.WithMessage(err, fmt.Sprintf("downloading patch for build %d", build.ID))
		}

		err = i.Patcher.Apply(consumer, patchPath, req.InstallFolder)
		if err != nil {
			return errors.WithMessage(err, fmt.Sprintf("applying patch for build %d", build.ID))
		}
	}
	return nil
}

func (i *Install) archivePath(req *InstallRequest) string {
	name := req.Upload.Filename
	if name == "" {
		name = fmt.Sprintf("upload-%d.archive", req.Upload.ID)
	}
	return filepath.Join(req.StagingFolder, name)
}

package pipeline

import (
	"fmt"
	"time"

	"github.com/itchio/ox"
	"github.com/itchio/warden/database"
	"github.com/itchio/warden/database/models"
	"github.com/itchio/warden/harness"
	"github.com/itchio/wharf/state"
	"github.com/pkg/errors"
)

// A Driver pops pending downloads off the queue and runs the install
// pipeline for each, oldest first.
type Driver struct {
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
}

// Drive processes the queue until it is empty. Errors are recorded
// on the download row, never propagated: one poisoned download must
// not starve the rest of the queue.
func (dr *Driver) Drive(consumer *state.Consumer) error {
	for {
		download, err := dr.DB.NextPendingDownload()
		if err != nil {
			return errors.WithStack(err)
		}
		if download == nil {
			consumer.Debugf("queue drained")
			return nil
		}

		dr.performOne(consumer, download)
	}
}

func (dr *Driver) performOne(consumer *state.Consumer, download *models.Download) {
	now := time.Now().UTC()
	download.StartedAt = &now
	if err := dr.DB.SaveDownload(download); err != nil {
		consumer.Warnf("could not mark download %s as started: %v", download.ID, err)
	}

	err := func() (rErr error) {
		defer func() {
			if r := recover(); r != nil {
				rErr = errors.Errorf("install panicked: %v", r)
			}
		}()

		req, err := requestFromDownload(download)
		if err != nil {
			return err
		}

		install := NewInstall(dr.DB, dr.Harness, dr.Registry)
		install.Runtime = dr.Runtime
		install.Downloader = dr.Downloader
		install.Extractor = dr.Extractor
		install.Configurator = dr.Configurator
		install.Launcher = dr.Launcher
		install.Notifier = dr.Notifier
		install.Patcher = dr.Patcher

		go drainEvents(consumer, install.Events())

		return install.Perform(consumer, req)
	}()

	finished := time.Now().UTC()
	download.FinishedAt = &finished
	if err != nil {
		msg := fmt.Sprintf("%+v", err)
		download.Error = &msg
		consumer.Warnf("download %s failed: %s", download.ID, msg)
	}
	if err := dr.DB.SaveDownload(download); err != nil {
		consumer.Warnf("could not mark download %s as finished: %v", download.ID, err)
	}
}

// requestFromDownload rebuilds the in-memory request from its
// persisted row.
func requestFromDownload(download *models.Download) (*InstallRequest, error) {
	game, err := download.GetGame()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	upload, err := download.GetUpload()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	build, err := download.GetBuild()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	upgradePath, err := download.GetUpgradePath()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &InstallRequest{
		CaveID:        download.CaveID,
		Game:          game,
		Upload:        upload,
		Build:         build,
		Reason:        DownloadReason(download.Reason),
		HandPicked:    download.HandPicked,
		Incremental:   download.Incremental,
		UpgradePath:   upgradePath,
		TotalSize:     download.TotalSize,
		DownloadKeyID: download.DownloadKeyID,
		InstallFolder: download.InstallFolder,
		StagingFolder: download.StagingFolder,
	}, nil
}

func drainEvents(consumer *state.Consumer, events <-chan Event) {
	lastLogged := -1
	for ev := range events {
		switch ev.Kind {
		case EventProgress:
			percent := int(ev.Progress * 100)
			if percent/10 > lastLogged/10 {
				consumer.Progress(ev.Progress)
				lastLogged = percent
			}
		case EventDone:
			consumer.Progress(1)
		case EventFailed:
			// the error is already recorded on the download row
		}
	}
}

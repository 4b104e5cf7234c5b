package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/itchio/warden/database/models"
	"github.com/itchio/wharf/state"
	"github.com/pkg/errors"
)

// commit records the install on the cave. It only ever runs after
// download, extraction and configuration all succeeded, so a failed
// pipeline leaves the cave's recorded state untouched.
func (i *Install) commit(consumer *state.Consumer, profile *models.Profile, req *InstallRequest) error {
	cave, err := i.DB.CaveByID(req.CaveID)
	if err != nil {
		return errors.WithStack(err)
	}
	if cave == nil {
		cave = &models.Cave{
			ID: req.CaveID,
		}
		if cave.ID == "" {
			cave.ID = uuid.New().String()
		}
		consumer.Debugf("creating cave %s", cave.ID)
	}

	cave.GameID = req.Game.ID
	cave.InstalledByID = profile.UserID
	cave.Launchable = true
	cave.InstallFolder = req.InstallFolder
	cave.InstalledSize = req.TotalSize
	cave.DownloadKeyID = req.DownloadKeyID

	cave.UploadID = req.Upload.ID
	if err := cave.SetUpload(req.Upload); err != nil {
		return errors.WithStack(err)
	}

	// the build id is recorded exactly when the upload does wharf
	if req.Upload.Build != nil {
		cave.BuildID = req.Upload.Build.ID
		if err := cave.SetBuild(req.Upload.Build); err != nil {
			return errors.WithStack(err)
		}
	} else {
		cave.BuildID = 0
		if err := cave.SetBuild(nil); err != nil {
			return errors.WithStack(err)
		}
	}

	now := time.Now().UTC()
	cave.InstalledAt = &now

	err = i.DB.SaveCave(cave)
	if err != nil {
		return errors.WithStack(err)
	}

	consumer.Infof("cave %s now at upload %d (build %d)", cave.ID, cave.UploadID, cave.BuildID)
	return nil
}

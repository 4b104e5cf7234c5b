package pipeline

import (
	"path/filepath"

	"github.com/google/uuid"
	"github.com/itchio/warden/database"
	"github.com/itchio/warden/database/models"
	"github.com/pkg/errors"
)

type dbQueue struct {
	db *database.DB
}

var _ Queue = (*dbQueue)(nil)

// NewQueue returns the persisted install queue. Requests survive a
// process restart and are picked up by the next Drive call.
func NewQueue(db *database.DB) Queue {
	return &dbQueue{db: db}
}

func (q *dbQueue) Queue(req *InstallRequest) error {
	if req.Game == nil {
		return errors.New("install request has no game")
	}

	stagingFolder := req.StagingFolder
	if stagingFolder == "" && req.InstallFolder != "" {
		stagingFolder = filepath.Join(req.InstallFolder, ".staging")
	}

	d := &models.Download{
		ID:            uuid.New().String(),
		Reason:        string(req.Reason),
		HandPicked:    req.HandPicked,
		Incremental:   req.Incremental,
		CaveID:        req.CaveID,
		GameID:        req.Game.ID,
		TotalSize:     req.TotalSize,
		DownloadKeyID: req.DownloadKeyID,
		InstallFolder: req.InstallFolder,
		StagingFolder: stagingFolder,
	}

	if err := d.SetGame(req.Game); err != nil {
		return errors.WithStack(err)
	}
	if err := d.SetUpload(req.Upload); err != nil {
		return errors.WithStack(err)
	}
	if err := d.SetBuild(req.Build); err != nil {
		return errors.WithStack(err)
	}
	if err := d.SetUpgradePath(req.UpgradePath); err != nil {
		return errors.WithStack(err)
	}

	// QueueDownload drops any still-pending download for the same
	// cave, so racing checkers can't pile up duplicates
	return q.db.QueueDownload(d)
}

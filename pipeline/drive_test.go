package pipeline_test

import (
	"testing"
	"time"

	itchio "github.com/itchio/go-itchio"
	"github.com/itchio/ox"
	"github.com/itchio/warden/database"
	"github.com/itchio/warden/database/models"
	"github.com/itchio/warden/pipeline"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queueRequest(caveID string, gameID int64, uploadID int64, folder string) *pipeline.InstallRequest {
	return &pipeline.InstallRequest{
		CaveID: caveID,
		Game: &itchio.Game{
			ID:             gameID,
			Title:          "Xenoblast",
			Classification: "game",
		},
		Upload: &itchio.Upload{
			ID:        uploadID,
			Filename:  "xenoblast-linux.zip",
			Type:      "default",
			Platforms: itchio.Platforms{Linux: itchio.ArchitecturesAll},
		},
		Reason:        pipeline.DownloadReasonUpdate,
		InstallFolder: folder,
	}
}

func TestQueueReplacesPendingForSameCave(t *testing.T) {
	h := makePipelineHarness(t)
	q := pipeline.NewQueue(h.db)

	require.NoError(t, q.Queue(queueRequest("cave-1", 123, 100, h.tmp)))
	require.NoError(t, q.Queue(queueRequest("cave-1", 123, 200, h.tmp)))

	download, err := h.db.NextPendingDownload()
	require.NoError(t, err)
	require.NotNil(t, download)
	upload, err := download.GetUpload()
	require.NoError(t, err)
	assert.EqualValues(t, 200, upload.ID, "the later request wins")

	finishDownload(t, h.db, download)

	download, err = h.db.NextPendingDownload()
	require.NoError(t, err)
	assert.Nil(t, download, "the replaced request is gone, not pending behind")
}

func TestQueueKeepsDistinctCavesOrdered(t *testing.T) {
	h := makePipelineHarness(t)
	q := pipeline.NewQueue(h.db)

	require.NoError(t, q.Queue(queueRequest("cave-1", 123, 100, h.tmp)))
	require.NoError(t, q.Queue(queueRequest("cave-2", 456, 300, h.tmp)))

	first, err := h.db.NextPendingDownload()
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.EqualValues(t, "cave-1", first.CaveID)

	finishDownload(t, h.db, first)

	second, err := h.db.NextPendingDownload()
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.EqualValues(t, "cave-2", second.CaveID)
}

func finishDownload(t *testing.T, db *database.DB, download *models.Download) {
	now := time.Now().UTC()
	download.FinishedAt = &now
	require.NoError(t, db.SaveDownload(download))
}

func TestDriveSurvivesFailingInstall(t *testing.T) {
	h := makePipelineHarness(t)
	q := pipeline.NewQueue(h.db)

	require.NoError(t, q.Queue(queueRequest("cave-1", 123, 100, h.tmp)))
	require.NoError(t, q.Queue(queueRequest("cave-2", 456, 300, h.tmp)))

	h.extractor.err = errors.New("corrupt archive")

	driver := &pipeline.Driver{
		DB:           h.db,
		Harness:      &clientHarness{client: h.client},
		Runtime:      &ox.Runtime{Platform: ox.PlatformLinux, Is64: true},
		Registry:     pipeline.NewRegistry(),
		Downloader:   h.downloader,
		Extractor:    h.extractor,
		Configurator: h.configurator,
		Launcher:     h.launcher,
		Notifier:     h.notifier,
		Patcher:      h.patcher,
	}

	require.NoError(t, driver.Drive(h.consumer), "one poisoned download must not kill the loop")

	pending, err := h.db.NextPendingDownload()
	require.NoError(t, err)
	assert.Nil(t, pending, "everything was attempted")

	for _, caveID := range []string{"cave-1", "cave-2"} {
		downloads, err := h.db.DownloadsByCaveID(caveID)
		require.NoError(t, err)
		require.EqualValues(t, 1, len(downloads))
		require.NotNil(t, downloads[0].FinishedAt)
		require.NotNil(t, downloads[0].Error)
		assert.Contains(t, *downloads[0].Error, "corrupt archive")
	}
}

func TestDriveCommitsSuccessfulInstall(t *testing.T) {
	h := makePipelineHarness(t)
	q := pipeline.NewQueue(h.db)

	require.NoError(t, q.Queue(queueRequest("cave-1", 123, 100, h.tmp)))

	driver := &pipeline.Driver{
		DB:           h.db,
		Harness:      &clientHarness{client: h.client},
		Runtime:      &ox.Runtime{Platform: ox.PlatformLinux, Is64: true},
		Registry:     pipeline.NewRegistry(),
		Downloader:   h.downloader,
		Extractor:    h.extractor,
		Configurator: h.configurator,
		Launcher:     h.launcher,
		Notifier:     h.notifier,
		Patcher:      h.patcher,
	}

	require.NoError(t, driver.Drive(h.consumer))

	cave, err := h.db.CaveByID("cave-1")
	require.NoError(t, err)
	require.NotNil(t, cave)
	assert.EqualValues(t, 100, cave.UploadID)
	assert.True(t, cave.Launchable)

	downloads, err := h.db.DownloadsByCaveID("cave-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, len(downloads))
	require.NotNil(t, downloads[0].FinishedAt)
	assert.Nil(t, downloads[0].Error)
}

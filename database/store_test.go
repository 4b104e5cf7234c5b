package database_test

import (
	"testing"
	"time"

	"github.com/itchio/warden/database"
	"github.com/itchio/warden/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeDB(t *testing.T) *database.DB {
	pool, err := database.OpenInMemory()
	require.NoError(t, err)

	conn := pool.Get(nil)
	require.NoError(t, database.Prepare(conn))
	pool.Put(conn)

	return database.New(pool)
}

func TestCurrentProfilePicksMostRecent(t *testing.T) {
	db := makeDB(t)

	require.NoError(t, db.SaveProfile(&models.Profile{
		ID:            1,
		APIKey:        "OLD",
		UserID:        11,
		LastConnected: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, db.SaveProfile(&models.Profile{
		ID:            2,
		APIKey:        "NEW",
		UserID:        22,
		LastConnected: time.Date(2018, 6, 1, 0, 0, 0, 0, time.UTC),
	}))

	profile, err := db.CurrentProfile()
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.EqualValues(t, 2, profile.ID)
	assert.EqualValues(t, "NEW", profile.APIKey)
}

func TestCaveByIDMissing(t *testing.T) {
	db := makeDB(t)

	cave, err := db.CaveByID("nope")
	require.NoError(t, err)
	assert.Nil(t, cave)
}

func TestDownloadQueueOrdering(t *testing.T) {
	db := makeDB(t)

	require.NoError(t, db.QueueDownload(&models.Download{ID: "d-1", CaveID: "cave-1"}))
	require.NoError(t, db.QueueDownload(&models.Download{ID: "d-2", CaveID: "cave-2"}))
	require.NoError(t, db.QueueDownload(&models.Download{ID: "d-3", CaveID: "cave-3"}))

	next, err := db.NextPendingDownload()
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.EqualValues(t, "d-1", next.ID)

	finishedAt := time.Date(2018, 2, 1, 0, 0, 0, 0, time.UTC)
	next.FinishedAt = &finishedAt
	require.NoError(t, db.SaveDownload(next))

	next, err = db.NextPendingDownload()
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.EqualValues(t, "d-2", next.ID)
}

func TestQueueDownloadReplacesPendingForSameCave(t *testing.T) {
	db := makeDB(t)

	require.NoError(t, db.QueueDownload(&models.Download{ID: "d-1", CaveID: "cave-1"}))
	require.NoError(t, db.QueueDownload(&models.Download{ID: "d-2", CaveID: "cave-1"}))

	downloads, err := db.DownloadsByCaveID("cave-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, len(downloads))
	assert.EqualValues(t, "d-2", downloads[0].ID)

	next, err := db.NextPendingDownload()
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.EqualValues(t, "d-2", next.ID)
}

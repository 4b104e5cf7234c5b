package database

import (
	"crawshaw.io/sqlite"
	"github.com/go-xorm/builder"
	"github.com/itchio/warden/database/models"
	"github.com/pkg/errors"
)

// DB wraps a connection pool with the entity accessors the rest of
// warden consumes. Callers depend on the subset they need, so tests
// can substitute fakes.
type DB struct {
	pool *sqlite.Pool
}

func New(pool *sqlite.Pool) *DB {
	return &DB{pool: pool}
}

func (db *DB) withConn(fn func(conn *sqlite.Conn) error) error {
	conn := db.pool.Get(nil)
	if conn == nil {
		return errors.New("database pool is closed")
	}
	defer db.pool.Put(conn)

	return fn(conn)
}

func (db *DB) CurrentProfile() (profile *models.Profile, err error) {
	err = db.withConn(func(conn *sqlite.Conn) error {
		profile, err = models.CurrentProfile(conn)
		return err
	})
	return
}

func (db *DB) SaveProfile(profile *models.Profile) error {
	return db.withConn(func(conn *sqlite.Conn) error {
		return models.Save(conn, profile)
	})
}

func (db *DB) AllCaves() (caves []*models.Cave, err error) {
	err = db.withConn(func(conn *sqlite.Conn) error {
		caves, err = models.AllCaves(conn)
		return err
	})
	return
}

func (db *DB) CaveByID(id string) (cave *models.Cave, err error) {
	err = db.withConn(func(conn *sqlite.Conn) error {
		cave, err = models.CaveByID(conn, id)
		return err
	})
	return
}

func (db *DB) SaveCave(cave *models.Cave) error {
	return db.withConn(func(conn *sqlite.Conn) error {
		return models.SaveCave(conn, cave)
	})
}

func (db *DB) DownloadKeyByID(id int64) (key *models.DownloadKey, err error) {
	err = db.withConn(func(conn *sqlite.Conn) error {
		key, err = models.DownloadKeyByID(conn, id)
		return err
	})
	return
}

func (db *DB) DownloadKeysByGameID(gameID int64) (keys []*models.DownloadKey, err error) {
	err = db.withConn(func(conn *sqlite.Conn) error {
		keys, err = models.DownloadKeysByGameID(conn, gameID)
		return err
	})
	return
}

func (db *DB) SaveDownloadKey(key *models.DownloadKey) error {
	return db.withConn(func(conn *sqlite.Conn) error {
		return models.Save(conn, key)
	})
}

func (db *DB) GameSnapshotByID(gameID int64) (snapshot *models.GameSnapshot, err error) {
	err = db.withConn(func(conn *sqlite.Conn) error {
		snapshot, err = models.GameSnapshotByID(conn, gameID)
		return err
	})
	return
}

func (db *DB) SaveGameSnapshot(snapshot *models.GameSnapshot) error {
	return db.withConn(func(conn *sqlite.Conn) error {
		return models.Save(conn, snapshot)
	})
}

// QueueDownload persists a download at the end of the queue,
// discarding any other queued downloads for the same cave first.
// Deduplication lives here, not in the update checker: two
// concurrent checks for one cave may both try to queue.
func (db *DB) QueueDownload(d *models.Download) error {
	return db.withConn(func(conn *sqlite.Conn) error {
		if d.CaveID != "" {
			err := models.Delete(conn, &models.Download{}, builder.And(
				builder.Eq{"cave_id": d.CaveID},
				builder.IsNull{"finished_at"},
			))
			if err != nil {
				return err
			}
		}

		d.Position = models.DownloadMaxPosition(conn) + 1
		return models.Save(conn, d)
	})
}

func (db *DB) NextPendingDownload() (download *models.Download, err error) {
	err = db.withConn(func(conn *sqlite.Conn) error {
		download, err = models.NextPendingDownload(conn)
		return err
	})
	return
}

func (db *DB) SaveDownload(d *models.Download) error {
	return db.withConn(func(conn *sqlite.Conn) error {
		return models.Save(conn, d)
	})
}

func (db *DB) DownloadsByCaveID(caveID string) (downloads []*models.Download, err error) {
	err = db.withConn(func(conn *sqlite.Conn) error {
		downloads, err = models.DownloadsByCaveID(conn, caveID)
		return err
	})
	return
}

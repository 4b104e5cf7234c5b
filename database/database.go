package database

import (
	"os"
	"path/filepath"

	"crawshaw.io/sqlite"
	"github.com/itchio/warden/database/models"
	"github.com/pkg/errors"
)

// Open returns a connection pool to warden's sqlite database
func Open(dbPath string) (*sqlite.Pool, error) {
	err := os.MkdirAll(filepath.Dir(dbPath), 0755)
	if err != nil {
		return nil, errors.Wrap(err, "creating db directory")
	}

	pool, err := sqlite.Open("file:"+dbPath, 0, 10)
	if err != nil {
		return nil, errors.Wrap(err, "opening SQLite database")
	}

	return pool, nil
}

// OpenInMemory returns a single-connection pool to a private
// in-memory database, used by tests.
func OpenInMemory() (*sqlite.Pool, error) {
	pool, err := sqlite.Open("file::memory:?mode=memory", 0, 1)
	if err != nil {
		return nil, errors.Wrap(err, "opening in-memory SQLite database")
	}

	return pool, nil
}

// Prepare synchronizes schemas, runs migrations etc.
func Prepare(conn *sqlite.Conn) error {
	err := models.HadesContext().AutoMigrate(conn)
	if err != nil {
		return errors.WithMessage(err, "performing automatic DB migration")
	}

	return nil
}

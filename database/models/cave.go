package models

import (
	"time"

	"crawshaw.io/sqlite"
	"github.com/go-xorm/builder"
	itchio "github.com/itchio/go-itchio"
	"github.com/itchio/hades"
)

// A Cave is one local installation of a game. It maps one-to-one
// with an upload; a given game may have 0, 1 or several caves.
type Cave struct {
	ID string `json:"id"`

	GameID int64 `json:"gameId"`

	// profile that performed the install - update checks for
	// caves installed by another profile are skipped
	InstalledByID int64 `json:"installedById"`

	UploadID int64 `json:"uploadId"`
	// BuildID is non-zero only when the installed upload is wharf-enabled
	BuildID int64 `json:"buildId"`

	Upload JSON `json:"upload"`
	Build  JSON `json:"build"`

	// DownloadKeyID is the key this cave was installed with, if any.
	// It may belong to another profile, in which case update checks skip it.
	DownloadKeyID int64 `json:"downloadKeyId"`

	Launchable bool `json:"launchable"`

	InstalledAt   *time.Time `json:"installedAt"`
	InstalledSize int64      `json:"installedSize"`

	InstallFolder string `json:"installFolder"`
}

func (c *Cave) SetUpload(upload *itchio.Upload) error { return MarshalUpload(upload, &c.Upload) }
func (c *Cave) GetUpload() (*itchio.Upload, error)    { return UnmarshalUpload(c.Upload) }

func (c *Cave) SetBuild(build *itchio.Build) error { return MarshalBuild(build, &c.Build) }
func (c *Cave) GetBuild() (*itchio.Build, error)   { return UnmarshalBuild(c.Build) }

func CaveByID(conn *sqlite.Conn, id string) (*Cave, error) {
	var caves []*Cave
	err := Select(conn, &caves, builder.Eq{"id": id}, limitOne())
	if err != nil {
		return nil, err
	}
	if len(caves) == 0 {
		return nil, nil
	}
	return caves[0], nil
}

func AllCaves(conn *sqlite.Conn) ([]*Cave, error) {
	var caves []*Cave
	err := Select(conn, &caves, builder.NewCond(), hades.Search{})
	if err != nil {
		return nil, err
	}
	return caves, nil
}

func SaveCave(conn *sqlite.Conn, cave *Cave) error {
	return Save(conn, cave)
}

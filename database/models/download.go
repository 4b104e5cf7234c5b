package models

import (
	"time"

	"crawshaw.io/sqlite"
	"github.com/go-xorm/builder"
	"github.com/itchio/hades"
	itchio "github.com/itchio/go-itchio"
)

// A Download is one queued acquisition: it records everything the
// install pipeline needs to drive a cave from "wanted" to "running".
type Download struct {
	// An UUID
	ID string `json:"id"`

	// "install" or "update"
	Reason string `json:"reason"`

	// true when the user explicitly picked this upload among
	// several candidates
	HandPicked bool `json:"handPicked"`

	// true when this download applies a patch chain instead of
	// fetching the full archive
	Incremental bool `json:"incremental"`

	CaveID string `json:"caveId"`
	GameID int64  `json:"gameId"`

	Game   JSON `json:"game"`
	Upload JSON `json:"upload"`
	Build  JSON `json:"build"`

	// ordered builds whose patches are applied in sequence,
	// empty unless Incremental
	UpgradePath JSON  `json:"upgradePath"`
	TotalSize   int64 `json:"totalSize"`

	DownloadKeyID int64 `json:"downloadKeyId"`

	Position int64 `json:"position"`

	InstallFolder string `json:"installFolder"`
	StagingFolder string `json:"stagingFolder"`

	StartedAt  *time.Time `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt"`
	Error      *string    `json:"error"`
}

func (d *Download) SetGame(game *itchio.Game) error { return MarshalGame(game, &d.Game) }
func (d *Download) GetGame() (*itchio.Game, error)  { return UnmarshalGame(d.Game) }

func (d *Download) SetUpload(upload *itchio.Upload) error { return MarshalUpload(upload, &d.Upload) }
func (d *Download) GetUpload() (*itchio.Upload, error)    { return UnmarshalUpload(d.Upload) }

func (d *Download) SetBuild(build *itchio.Build) error { return MarshalBuild(build, &d.Build) }
func (d *Download) GetBuild() (*itchio.Build, error)   { return UnmarshalBuild(d.Build) }

func (d *Download) SetUpgradePath(builds []*itchio.Build) error {
	return MarshalUpgradePath(builds, &d.UpgradePath)
}
func (d *Download) GetUpgradePath() ([]*itchio.Build, error) {
	return UnmarshalUpgradePath(d.UpgradePath)
}

func DownloadMaxPosition(conn *sqlite.Conn) int64 {
	var maxPosition int64 = -1

	var downloads []*Download
	err := Select(conn, &downloads, builder.NewCond(), hades.Search{}.OrderBy("position DESC").Limit(1))
	if err == nil && len(downloads) > 0 {
		maxPosition = downloads[0].Position
	}
	return maxPosition
}

// NextPendingDownload returns the unfinished, unerrored download
// with the lowest position, or nil if the queue is empty.
func NextPendingDownload(conn *sqlite.Conn) (*Download, error) {
	var downloads []*Download
	err := Select(conn, &downloads,
		builder.And(builder.IsNull{"finished_at"}, builder.IsNull{"error"}),
		hades.Search{}.OrderBy("position ASC").Limit(1),
	)
	if err != nil {
		return nil, err
	}
	if len(downloads) == 0 {
		return nil, nil
	}
	return downloads[0], nil
}

func DownloadsByCaveID(conn *sqlite.Conn, caveID string) ([]*Download, error) {
	var downloads []*Download
	err := Select(conn, &downloads, builder.Eq{"cave_id": caveID}, hades.Search{})
	if err != nil {
		return nil, err
	}
	return downloads, nil
}

package models

import (
	"time"

	"crawshaw.io/sqlite"
	"github.com/go-xorm/builder"
	itchio "github.com/itchio/go-itchio"
)

// A GameSnapshot caches catalog data for one game, so update
// checks don't hammer the API for titles we fetched recently.
type GameSnapshot struct {
	GameID int64 `json:"gameId" hades:"primary_key"`

	Game JSON `json:"game"`

	FetchedAt *time.Time `json:"fetchedAt"`
}

func (gs *GameSnapshot) SetGame(game *itchio.Game) error { return MarshalGame(game, &gs.Game) }
func (gs *GameSnapshot) GetGame() (*itchio.Game, error)  { return UnmarshalGame(gs.Game) }

// Stale returns true if the snapshot is older than ttl.
func (gs *GameSnapshot) Stale(ttl time.Duration) bool {
	if gs.FetchedAt == nil {
		return true
	}
	return time.Since(*gs.FetchedAt) > ttl
}

func GameSnapshotByID(conn *sqlite.Conn, gameID int64) (*GameSnapshot, error) {
	var snapshots []*GameSnapshot
	err := Select(conn, &snapshots, builder.Eq{"game_id": gameID}, limitOne())
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	return snapshots[0], nil
}

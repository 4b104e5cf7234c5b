package models

import (
	"crawshaw.io/sqlite"
	"github.com/go-xorm/builder"
	"github.com/itchio/hades"
)

// A DownloadKey grants a specific profile access to a game's
// uploads - it might have been bought, or generated by the
// game's author.
type DownloadKey struct {
	ID int64 `json:"id"`

	GameID int64 `json:"gameId"`

	// profile this key belongs to - not necessarily the
	// profile that installed the cave it's attached to
	OwnerID int64 `json:"ownerId"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func DownloadKeyByID(conn *sqlite.Conn, id int64) (*DownloadKey, error) {
	var keys []*DownloadKey
	err := Select(conn, &keys, builder.Eq{"id": id}, limitOne())
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	return keys[0], nil
}

func DownloadKeysByGameID(conn *sqlite.Conn, gameID int64) ([]*DownloadKey, error) {
	var keys []*DownloadKey
	err := Select(conn, &keys, builder.Eq{"game_id": gameID}, hades.Search{})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

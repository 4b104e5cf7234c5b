package models

import (
	"time"

	"crawshaw.io/sqlite"
	"github.com/go-xorm/builder"
	"github.com/itchio/hades"
)

// A Profile is a locally-stored itch.io session: which user is
// logged in, and the API key we talk to the server with.
type Profile struct {
	ID int64 `json:"id"`

	APIKey string `json:"apiKey"`

	UserID int64 `json:"userId"`

	LastConnected time.Time `json:"lastConnected"`
}

// CurrentProfile returns the most recently connected profile,
// or nil if nobody ever logged in.
func CurrentProfile(conn *sqlite.Conn) (*Profile, error) {
	var profiles []*Profile
	err := Select(conn, &profiles, builder.NewCond(), hades.Search{}.OrderBy("last_connected DESC").Limit(1))
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	return profiles[0], nil
}

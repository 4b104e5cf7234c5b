package updater

import (
	"time"

	itchio "github.com/itchio/go-itchio"
	"github.com/itchio/warden/database/models"
	"github.com/itchio/wharf/state"
	"github.com/pkg/errors"
)

// DefaultGameCacheTTL is how long a fetched game record is served
// from the local snapshot before we ask the API again.
const DefaultGameCacheTTL = 5 * time.Minute

// FetchGame returns the game record for gameID, serving it from the
// local snapshot when fresh enough, hitting the API otherwise.
func (c *Checker) FetchGame(consumer *state.Consumer, client *itchio.Client, gameID int64, credentials itchio.GameCredentials) (*itchio.Game, error) {
	ttl := c.GameCacheTTL
	if ttl == 0 {
		ttl = DefaultGameCacheTTL
	}

	snapshot, err := c.DB.GameSnapshotByID(gameID)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if snapshot != nil && !snapshot.Stale(ttl) {
		game, err := snapshot.GetGame()
		if err == nil && game != nil {
			consumer.Debugf("Using cached record for game %d", gameID)
			return game, nil
		}
		// bad snapshot, fall through to the API
		consumer.Warnf("Ignoring unreadable snapshot for game %d: %v", gameID, err)
	}

	gameRes, err := client.GetGame(itchio.GetGameParams{
		GameID:      gameID,
		Credentials: credentials,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	game := gameRes.Game
	if game == nil {
		return nil, errors.Errorf("API returned no game for id %d", gameID)
	}

	freshSnapshot := &models.GameSnapshot{
		GameID: game.ID,
	}
	if err := freshSnapshot.SetGame(game); err != nil {
		return nil, errors.WithStack(err)
	}
	now := time.Now().UTC()
	freshSnapshot.FetchedAt = &now

	if err := c.DB.SaveGameSnapshot(freshSnapshot); err != nil {
		// caching is best-effort, the fresh record is still good
		consumer.Warnf("Could not save snapshot for game %d: %v", game.ID, err)
	}

	return game, nil
}

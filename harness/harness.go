// Package harness decouples the rest of the code from the way
// API clients are obtained, so tests can substitute their own.
package harness

import (
	itchio "github.com/itchio/go-itchio"
	"github.com/itchio/httpkit/timeout"
	"github.com/itchio/warden/database/models"
	"github.com/pkg/errors"
)

// A Harness hands out API clients for a given profile.
type Harness interface {
	ClientFromCredentials(profile *models.Profile) (*itchio.Client, error)
}

type productionHarness struct{}

var _ Harness = (*productionHarness)(nil)

func NewProductionHarness() Harness {
	return &productionHarness{}
}

func (ph *productionHarness) ClientFromCredentials(profile *models.Profile) (*itchio.Client, error) {
	if profile == nil {
		return nil, errors.New("no profile")
	}
	if profile.APIKey == "" {
		return nil, errors.Errorf("profile %d lacks an API key", profile.ID)
	}

	client := itchio.ClientWithKey(profile.APIKey)
	client.HTTPClient = timeout.NewDefaultClient()
	return client, nil
}

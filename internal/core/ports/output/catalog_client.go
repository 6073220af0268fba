package ports

import (
	"context"

	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
)

// CatalogClient looks up published stellar observables by star name, so runs
// can be seeded from a catalog instead of hand-entered values.
type CatalogClient interface {
	// GetStar fetches a star and its observations from the catalog
	GetStar(ctx context.Context, name string) (*domain.Star, error)

	// IsAvailable checks if the catalog integration is enabled and configured
	IsAvailable() bool
}

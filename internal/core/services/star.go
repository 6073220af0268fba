package services

import (
	"context"

	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
	ports "github.com/ojscutt/sl-pitchfork/internal/core/ports/output"
)

// StarService exposes catalog lookups so clients can inspect what a run
// seeded from a star would observe.
type StarService struct {
	catalog ports.CatalogClient
}

func NewStarService(catalog ports.CatalogClient) *StarService {
	return &StarService{catalog: catalog}
}

func (s *StarService) Get(ctx context.Context, name string) (*domain.Star, error) {
	if s.catalog == nil || !s.catalog.IsAvailable() {
		return nil, domain.ErrCatalogUnavailable
	}
	return s.catalog.GetStar(ctx, name)
}

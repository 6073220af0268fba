// Package catalog talks to an external star catalog service over HTTP.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ojscutt/sl-pitchfork/internal/config"
	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
	ports "github.com/ojscutt/sl-pitchfork/internal/core/ports/output"
)

type catalogClient struct {
	baseURL string
	client  *http.Client
	enabled bool
}

// NewCatalogClient creates a new star catalog client adapter
func NewCatalogClient(cfg *config.CatalogConfig) ports.CatalogClient {
	if !cfg.Enabled {
		return &catalogClient{enabled: false}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &catalogClient{
		baseURL: cfg.URL,
		enabled: true,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *catalogClient) IsAvailable() bool {
	return c.enabled
}

// starEntry mirrors the catalog's wire format: a flat list of observables
// with symmetric uncertainties.
type starEntry struct {
	Name         string `json:"name"`
	Observations []struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
		Sigma float64 `json:"sigma"`
	} `json:"observations"`
}

func (c *catalogClient) GetStar(ctx context.Context, name string) (*domain.Star, error) {
	if !c.enabled {
		return nil, domain.ErrCatalogUnavailable
	}

	reqURL := fmt.Sprintf("%s/api/v1/stars/%s", c.baseURL, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query star catalog: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrStarNotFound, name)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("star catalog returned status %d", resp.StatusCode)
	}

	var entry starEntry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return nil, fmt.Errorf("decode star catalog response: %w", err)
	}

	star := &domain.Star{
		Name:         entry.Name,
		Observations: make([]domain.Observation, 0, len(entry.Observations)),
	}
	if star.Name == "" {
		star.Name = name
	}
	for _, o := range entry.Observations {
		star.Observations = append(star.Observations, domain.Observation{
			Name:  o.Name,
			Value: o.Value,
			Sigma: o.Sigma,
		})
	}

	return star, nil
}

// Ensure interface compliance
var _ ports.CatalogClient = (*catalogClient)(nil)

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
)

func TestGetStarObservations(t *testing.T) {
	m, r := setupRouter()

	star := &domain.Star{
		Name: "16 Cyg A",
		Observations: []domain.Observation{
			{Name: "teff", Value: 5825, Sigma: 50},
			{Name: "nu_0_10", Value: 1598.69, Sigma: 0.21},
		},
	}
	m.catalog.On("IsAvailable").Return(true)
	m.catalog.On("GetStar", mock.Anything, "16 Cyg A").Return(star, nil)

	req, _ := http.NewRequest("GET", "/api/v1/pitchfork/stars/16%20Cyg%20A/observations", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Name         string `json:"name"`
		Observations []struct {
			Name string `json:"name"`
		} `json:"observations"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "16 Cyg A", resp.Name)
	assert.Len(t, resp.Observations, 2)
}

func TestGetStarObservations_NotFound(t *testing.T) {
	m, r := setupRouter()

	m.catalog.On("IsAvailable").Return(true)
	m.catalog.On("GetStar", mock.Anything, "nope").Return(nil, domain.ErrStarNotFound)

	req, _ := http.NewRequest("GET", "/api/v1/pitchfork/stars/nope/observations", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStarObservations_CatalogDisabled(t *testing.T) {
	m, r := setupRouter()

	m.catalog.On("IsAvailable").Return(false)

	req, _ := http.NewRequest("GET", "/api/v1/pitchfork/stars/16%20Cyg%20A/observations", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	m.catalog.AssertNotCalled(t, "GetStar", mock.Anything, mock.Anything)
}

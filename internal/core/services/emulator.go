package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
	ports "github.com/ojscutt/sl-pitchfork/internal/core/ports/output"
	"github.com/ojscutt/sl-pitchfork/internal/emulator"
	"github.com/ojscutt/sl-pitchfork/internal/metrics"
)

// EmulatorService manages the emulator registry: artifact validation,
// metadata extraction, and a per-process cache of compiled engines.
type EmulatorService struct {
	repo    ports.EmulatorRepository
	runRepo ports.InferenceRunRepository
	store   ports.ArtifactStore

	mu      sync.RWMutex
	engines map[uuid.UUID]*emulator.Emulator
}

func NewEmulatorService(repo ports.EmulatorRepository, runRepo ports.InferenceRunRepository, store ports.ArtifactStore) *EmulatorService {
	return &EmulatorService{
		repo:    repo,
		runRepo: runRepo,
		store:   store,
		engines: make(map[uuid.UUID]*emulator.Emulator),
	}
}

// Register validates the artifact at artifactPath and creates a READY
// emulator carrying its interface metadata.
func (s *EmulatorService) Register(ctx context.Context, name, version, description, artifactPath string, labels map[string]string) (*domain.Emulator, error) {
	art, err := s.loadArtifact(ctx, artifactPath)
	if err != nil {
		metrics.IncArtifactRegistration(err)
		return nil, err
	}

	if name == "" {
		name = art.Name
	}
	if version == "" {
		version = art.Version
	}
	if description == "" {
		description = art.Description
	}

	em, err := domain.NewEmulator(name, version, description, artifactPath)
	if err != nil {
		return nil, err
	}
	if labels != nil {
		em.Labels = labels
	}
	s.applyArtifact(em, art)

	if err := s.repo.Create(ctx, em); err != nil {
		metrics.IncArtifactRegistration(err)
		return nil, err
	}
	metrics.IncArtifactRegistration(nil)

	return s.repo.GetByID(ctx, em.ID)
}

// RegisterFromFile is the artifact watcher entry point: it upserts the
// emulator described by an artifact file, replacing the metadata of an
// existing registration with the same name and version. Artifacts that fail
// validation are registered in FAILED state so the failure is visible in the
// API rather than lost in a log line.
func (s *EmulatorService) RegisterFromFile(ctx context.Context, path string) (*domain.Emulator, error) {
	art, loadErr := s.loadArtifact(ctx, path)

	name, version := artifactIdentity(art, path)
	existing, err := s.repo.GetByNameVersion(ctx, name, version)
	if err != nil && err != domain.ErrEmulatorNotFound {
		return nil, err
	}

	em := existing
	if em == nil {
		em, err = domain.NewEmulator(name, version, "", path)
		if err != nil {
			return nil, err
		}
	} else {
		em.ArtifactPath = path
	}

	if loadErr != nil {
		em.MarkFailed(loadErr.Error())
	} else {
		if em.Description == "" {
			em.Description = art.Description
		}
		s.applyArtifact(em, art)
	}

	if existing == nil {
		err = s.repo.Create(ctx, em)
	} else {
		err = s.repo.Update(ctx, em)
	}
	if err != nil {
		metrics.IncArtifactRegistration(err)
		return nil, err
	}
	s.invalidate(em.ID)

	metrics.IncArtifactRegistration(loadErr)
	if loadErr != nil {
		return em, loadErr
	}
	return em, nil
}

func (s *EmulatorService) Get(ctx context.Context, id uuid.UUID) (*domain.Emulator, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *EmulatorService) GetByName(ctx context.Context, name, version string) (*domain.Emulator, error) {
	if name == "" {
		return nil, domain.ErrInvalidEmulatorName
	}
	return s.repo.GetByNameVersion(ctx, name, version)
}

func (s *EmulatorService) List(ctx context.Context, filter ports.EmulatorListFilter) ([]*domain.Emulator, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

func (s *EmulatorService) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*domain.Emulator, error) {
	em, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if v, ok := updates["name"]; ok && v != nil {
		em.Name = v.(string)
		em.Slug = domain.GenerateSlug(em.Name)
	}
	if v, ok := updates["description"]; ok && v != nil {
		em.Description = v.(string)
	}
	if v, ok := updates["version"]; ok && v != nil {
		em.Version = v.(string)
	}
	if v, ok := updates["labels"]; ok && v != nil {
		em.Labels = v.(map[string]string)
	}
	em.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, em); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Delete removes an emulator unless non-terminal runs still reference it.
func (s *EmulatorService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	active, err := s.runRepo.CountActiveByEmulator(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return fmt.Errorf("%w: %d active runs", domain.ErrEmulatorHasRuns, active)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(id)
	return nil
}

// Predict evaluates a batch of parameter vectors against a READY emulator.
func (s *EmulatorService) Predict(ctx context.Context, id uuid.UUID, batch [][]float64) ([][]float64, *domain.Emulator, error) {
	em, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	eng, err := s.engineFor(ctx, em)
	if err != nil {
		metrics.ObservePrediction(em.Slug, err, time.Since(start))
		return nil, nil, err
	}

	out, err := eng.Predict(batch)
	metrics.ObservePrediction(em.Slug, err, time.Since(start))
	if err != nil {
		return nil, nil, err
	}
	return out, em, nil
}

// Engine returns the compiled engine of a READY emulator, loading and
// caching it on first use.
func (s *EmulatorService) Engine(ctx context.Context, id uuid.UUID) (*emulator.Emulator, *domain.Emulator, error) {
	em, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	eng, err := s.engineFor(ctx, em)
	if err != nil {
		return nil, nil, err
	}
	return eng, em, nil
}

func (s *EmulatorService) engineFor(ctx context.Context, em *domain.Emulator) (*emulator.Emulator, error) {
	if !em.IsReady() {
		return nil, fmt.Errorf("%w: status is %s", domain.ErrEmulatorNotReady, em.Status)
	}

	s.mu.RLock()
	eng, ok := s.engines[em.ID]
	s.mu.RUnlock()
	if ok {
		return eng, nil
	}

	art, err := s.loadArtifact(ctx, em.ArtifactPath)
	if err != nil {
		return nil, err
	}
	eng, err = emulator.New(art)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if cached, ok := s.engines[em.ID]; ok {
		eng = cached
	} else {
		s.engines[em.ID] = eng
	}
	s.mu.Unlock()
	return eng, nil
}

func (s *EmulatorService) loadArtifact(ctx context.Context, path string) (*emulator.Artifact, error) {
	r, err := s.store.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return emulator.Load(r)
}

func (s *EmulatorService) applyArtifact(em *domain.Emulator, art *emulator.Artifact) {
	ranges, _ := art.Ranges()
	converted := make(map[string]domain.ParameterRange, len(ranges))
	for name, r := range ranges {
		converted[name] = domain.ParameterRange{Min: r.Min, Max: r.Max}
	}

	gridName := ""
	if art.Grid != nil {
		gridName = art.Grid.Name
	}
	em.MarkReady(gridName, art.Inputs, art.ClassicalOutputs, art.AsteroOutputs, converted)
}

func (s *EmulatorService) invalidate(id uuid.UUID) {
	s.mu.Lock()
	delete(s.engines, id)
	s.mu.Unlock()
}

// artifactIdentity derives the registry name and version of an artifact file,
// falling back to the file name when the artifact could not be decoded.
func artifactIdentity(art *emulator.Artifact, path string) (name, version string) {
	if art != nil {
		name, version = art.Name, art.Version
	}
	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if version == "" {
		version = "v1"
	}
	return name, version
}

package testutil

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
	ports "github.com/ojscutt/sl-pitchfork/internal/core/ports/output"
)

// MockEmulatorRepo is a mock of EmulatorRepository.
type MockEmulatorRepo struct {
	mock.Mock
}

func (m *MockEmulatorRepo) Create(ctx context.Context, emulator *domain.Emulator) error {
	args := m.Called(ctx, emulator)
	return args.Error(0)
}

func (m *MockEmulatorRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Emulator, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Emulator), args.Error(1)
}

func (m *MockEmulatorRepo) GetByNameVersion(ctx context.Context, name, version string) (*domain.Emulator, error) {
	args := m.Called(ctx, name, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Emulator), args.Error(1)
}

func (m *MockEmulatorRepo) Update(ctx context.Context, emulator *domain.Emulator) error {
	args := m.Called(ctx, emulator)
	return args.Error(0)
}

func (m *MockEmulatorRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockEmulatorRepo) List(ctx context.Context, filter ports.EmulatorListFilter) ([]*domain.Emulator, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Emulator), args.Int(1), args.Error(2)
}

// MockInferenceRunRepo is a mock of InferenceRunRepository.
type MockInferenceRunRepo struct {
	mock.Mock
}

func (m *MockInferenceRunRepo) Create(ctx context.Context, run *domain.InferenceRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockInferenceRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.InferenceRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InferenceRun), args.Error(1)
}

func (m *MockInferenceRunRepo) Update(ctx context.Context, run *domain.InferenceRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockInferenceRunRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockInferenceRunRepo) List(ctx context.Context, filter ports.RunListFilter) ([]*domain.InferenceRun, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.InferenceRun), args.Int(1), args.Error(2)
}

func (m *MockInferenceRunRepo) CountActiveByEmulator(ctx context.Context, emulatorID uuid.UUID) (int, error) {
	args := m.Called(ctx, emulatorID)
	return args.Int(0), args.Error(1)
}

func (m *MockInferenceRunRepo) Claim(ctx context.Context, id uuid.UUID, runner string) (*domain.InferenceRun, error) {
	args := m.Called(ctx, id, runner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InferenceRun), args.Error(1)
}

func (m *MockInferenceRunRepo) SaveResult(ctx context.Context, result *domain.RunResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockInferenceRunRepo) GetResult(ctx context.Context, runID uuid.UUID) (*domain.RunResult, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RunResult), args.Error(1)
}

// MockArtifactStore is a mock of ArtifactStore.
type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	args := m.Called(ctx, name, r)
	return args.String(0), args.Error(1)
}

func (m *MockArtifactStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockArtifactStore) SaveSamples(ctx context.Context, name string, header []string, rows [][]float64) (string, error) {
	args := m.Called(ctx, name, header, rows)
	return args.String(0), args.Error(1)
}

func (m *MockArtifactStore) ReadSamples(ctx context.Context, path string, offset, limit int) (*ports.SamplesPage, error) {
	args := m.Called(ctx, path, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.SamplesPage), args.Error(1)
}

func (m *MockArtifactStore) ListArtifacts(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockArtifactStore) Delete(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

// MockRunLauncher is a mock of RunLauncher.
type MockRunLauncher struct {
	mock.Mock
}

func (m *MockRunLauncher) Runner() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockRunLauncher) Launch(ctx context.Context, run *domain.InferenceRun) (string, error) {
	args := m.Called(ctx, run)
	return args.String(0), args.Error(1)
}

func (m *MockRunLauncher) Stop(ctx context.Context, run *domain.InferenceRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunLauncher) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockCatalogClient is a mock of CatalogClient.
type MockCatalogClient struct {
	mock.Mock
}

func (m *MockCatalogClient) GetStar(ctx context.Context, name string) (*domain.Star, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Star), args.Error(1)
}

func (m *MockCatalogClient) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}

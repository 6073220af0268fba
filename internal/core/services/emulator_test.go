package services

import (
	"context"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
	ports "github.com/ojscutt/sl-pitchfork/internal/core/ports/output"
	"github.com/ojscutt/sl-pitchfork/internal/testutil"
)

func artifactReader() io.ReadCloser {
	return io.NopCloser(strings.NewReader(testutil.ArtifactJSON))
}

func TestEmulatorService_Register(t *testing.T) {
	repo := new(testutil.MockEmulatorRepo)
	runRepo := new(testutil.MockInferenceRunRepo)
	store := new(testutil.MockArtifactStore)
	svc := NewEmulatorService(repo, runRepo, store)

	store.On("Open", mock.Anything, "pitchfork-test.json").Return(artifactReader(), nil).Once()

	var created *domain.Emulator
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Emulator")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.Emulator) }).
		Return(nil)
	repo.On("GetByID", mock.Anything, mock.AnythingOfType("uuid.UUID")).
		Return(testutil.ReadyEmulator(), nil)

	em, err := svc.Register(context.Background(), "", "", "", "pitchfork-test.json", nil)
	assert.NoError(t, err)
	assert.NotNil(t, em)

	// Name, version and interface metadata come from the artifact.
	require.NotNil(t, created)
	assert.Equal(t, "pitchfork-test", created.Name)
	assert.Equal(t, "v1", created.Version)
	assert.Equal(t, domain.EmulatorStatusReady, created.Status)
	assert.Equal(t, []string{"mass", "age"}, created.Inputs)
	assert.Equal(t, []string{"teff"}, created.ClassicalOutputs)
	assert.Equal(t, []string{"nu_0_1", "nu_0_2"}, created.AsteroOutputs)
	assert.Equal(t, "test-grid", created.GridName)

	// log_age bounds arrive exponentiated.
	require.Contains(t, created.ParameterRanges, "age")
	assert.InDelta(t, math.Pow(10, -0.3), created.ParameterRanges["age"].Min, 1e-12)
	assert.InDelta(t, math.Pow(10, 1.2), created.ParameterRanges["age"].Max, 1e-12)

	repo.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestEmulatorService_Register_InvalidArtifact(t *testing.T) {
	repo := new(testutil.MockEmulatorRepo)
	runRepo := new(testutil.MockInferenceRunRepo)
	store := new(testutil.MockArtifactStore)
	svc := NewEmulatorService(repo, runRepo, store)

	store.On("Open", mock.Anything, "bad.json").
		Return(io.NopCloser(strings.NewReader(`{"schema_version": 99}`)), nil)

	_, err := svc.Register(context.Background(), "", "", "", "bad.json", nil)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestEmulatorService_Register_NameConflict(t *testing.T) {
	repo := new(testutil.MockEmulatorRepo)
	runRepo := new(testutil.MockInferenceRunRepo)
	store := new(testutil.MockArtifactStore)
	svc := NewEmulatorService(repo, runRepo, store)

	store.On("Open", mock.Anything, "pitchfork-test.json").Return(artifactReader(), nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Emulator")).
		Return(domain.ErrEmulatorNameConflict)

	_, err := svc.Register(context.Background(), "", "", "", "pitchfork-test.json", nil)
	assert.ErrorIs(t, err, domain.ErrEmulatorNameConflict)
}

func TestEmulatorService_RegisterFromFile_New(t *testing.T) {
	repo := new(testutil.MockEmulatorRepo)
	runRepo := new(testutil.MockInferenceRunRepo)
	store := new(testutil.MockArtifactStore)
	svc := NewEmulatorService(repo, runRepo, store)

	store.On("Open", mock.Anything, "watched/pitchfork-test.json").Return(artifactReader(), nil)
	repo.On("GetByNameVersion", mock.Anything, "pitchfork-test", "v1").
		Return(nil, domain.ErrEmulatorNotFound)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Emulator")).Return(nil)

	em, err := svc.RegisterFromFile(context.Background(), "watched/pitchfork-test.json")
	assert.NoError(t, err)
	require.NotNil(t, em)
	assert.Equal(t, domain.EmulatorStatusReady, em.Status)
	assert.Equal(t, "watched/pitchfork-test.json", em.ArtifactPath)
	repo.AssertExpectations(t)
}

func TestEmulatorService_RegisterFromFile_Replaces(t *testing.T) {
	repo := new(testutil.MockEmulatorRepo)
	runRepo := new(testutil.MockInferenceRunRepo)
	store := new(testutil.MockArtifactStore)
	svc := NewEmulatorService(repo, runRepo, store)

	existing := testutil.ReadyEmulator()
	store.On("Open", mock.Anything, "watched/pitchfork-test.json").Return(artifactReader(), nil)
	repo.On("GetByNameVersion", mock.Anything, "pitchfork-test", "v1").Return(existing, nil)
	repo.On("Update", mock.Anything, existing).Return(nil)

	em, err := svc.RegisterFromFile(context.Background(), "watched/pitchfork-test.json")
	assert.NoError(t, err)
	assert.Equal(t, existing.ID, em.ID)
	assert.Equal(t, "watched/pitchfork-test.json", em.ArtifactPath)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestEmulatorService_RegisterFromFile_InvalidMarksFailed(t *testing.T) {
	repo := new(testutil.MockEmulatorRepo)
	runRepo := new(testutil.MockInferenceRunRepo)
	store := new(testutil.MockArtifactStore)
	svc := NewEmulatorService(repo, runRepo, store)

	store.On("Open", mock.Anything, "watched/broken.json").
		Return(io.NopCloser(strings.NewReader("{not json")), nil)
	repo.On("GetByNameVersion", mock.Anything, "broken", "v1").
		Return(nil, domain.ErrEmulatorNotFound)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Emulator")).Return(nil)

	em, err := svc.RegisterFromFile(context.Background(), "watched/broken.json")
	assert.Error(t, err)
	require.NotNil(t, em)
	assert.Equal(t, domain.EmulatorStatusFailed, em.Status)
	assert.NotEmpty(t, em.LastError)
}

func TestEmulatorService_Predict(t *testing.T) {
	repo := new(testutil.MockEmulatorRepo)
	runRepo := new(testutil.MockInferenceRunRepo)
	store := new(testutil.MockArtifactStore)
	svc := NewEmulatorService(repo, runRepo, store)

	entity := testutil.ReadyEmulator()
	repo.On("GetByID", mock.Anything, entity.ID).Return(entity, nil)
	// A single Open proves the engine is cached across predictions.
	store.On("Open", mock.Anything, entity.ArtifactPath).Return(artifactReader(), nil).Once()

	out, em, err := svc.Predict(context.Background(), entity.ID, [][]float64{{10, 100}})
	require.NoError(t, err)
	assert.Equal(t, entity.ID, em.ID)
	require.Len(t, out, 1)
	require.Len(t, out[0], 3)
	assert.InDelta(t, 1000.0, out[0][0], 1e-9)
	assert.InDelta(t, math.Pow(10, 2.1), out[0][1], 1e-9)
	assert.InDelta(t, math.Pow(10, 1.2), out[0][2], 1e-9)

	_, _, err = svc.Predict(context.Background(), entity.ID, [][]float64{{1, 1}})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestEmulatorService_Predict_NotReady(t *testing.T) {
	repo := new(testutil.MockEmulatorRepo)
	runRepo := new(testutil.MockInferenceRunRepo)
	store := new(testutil.MockArtifactStore)
	svc := NewEmulatorService(repo, runRepo, store)

	entity := testutil.ReadyEmulator()
	entity.Status = domain.EmulatorStatusPending
	repo.On("GetByID", mock.Anything, entity.ID).Return(entity, nil)

	_, _, err := svc.Predict(context.Background(), entity.ID, [][]float64{{10, 100}})
	assert.ErrorIs(t, err, domain.ErrEmulatorNotReady)
}

func TestEmulatorService_Delete(t *testing.T) {
	repo := new(testutil.MockEmulatorRepo)
	runRepo := new(testutil.MockInferenceRunRepo)
	store := new(testutil.MockArtifactStore)
	svc := NewEmulatorService(repo, runRepo, store)

	entity := testutil.ReadyEmulator()
	repo.On("GetByID", mock.Anything, entity.ID).Return(entity, nil)
	runRepo.On("CountActiveByEmulator", mock.Anything, entity.ID).Return(0, nil)
	repo.On("Delete", mock.Anything, entity.ID).Return(nil)

	err := svc.Delete(context.Background(), entity.ID)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestEmulatorService_Delete_ActiveRuns(t *testing.T) {
	repo := new(testutil.MockEmulatorRepo)
	runRepo := new(testutil.MockInferenceRunRepo)
	store := new(testutil.MockArtifactStore)
	svc := NewEmulatorService(repo, runRepo, store)

	entity := testutil.ReadyEmulator()
	repo.On("GetByID", mock.Anything, entity.ID).Return(entity, nil)
	runRepo.On("CountActiveByEmulator", mock.Anything, entity.ID).Return(2, nil)

	err := svc.Delete(context.Background(), entity.ID)
	assert.ErrorIs(t, err, domain.ErrEmulatorHasRuns)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestEmulatorService_Update(t *testing.T) {
	repo := new(testutil.MockEmulatorRepo)
	runRepo := new(testutil.MockInferenceRunRepo)
	store := new(testutil.MockArtifactStore)
	svc := NewEmulatorService(repo, runRepo, store)

	entity := testutil.ReadyEmulator()
	repo.On("GetByID", mock.Anything, entity.ID).Return(entity, nil)

	var updated *domain.Emulator
	repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Emulator")).
		Run(func(args mock.Arguments) { updated = args.Get(1).(*domain.Emulator) }).
		Return(nil)

	_, err := svc.Update(context.Background(), entity.ID, map[string]interface{}{
		"name":        "MS Emulator",
		"description": "main sequence",
	})
	assert.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "MS Emulator", updated.Name)
	assert.Equal(t, "ms-emulator", updated.Slug)
	assert.Equal(t, "main sequence", updated.Description)
}

func TestEmulatorService_List_DefaultLimit(t *testing.T) {
	repo := new(testutil.MockEmulatorRepo)
	runRepo := new(testutil.MockInferenceRunRepo)
	store := new(testutil.MockArtifactStore)
	svc := NewEmulatorService(repo, runRepo, store)

	filter := ports.EmulatorListFilter{Limit: 0}
	expected := filter
	expected.Limit = 20

	repo.On("List", mock.Anything, expected).Return([]*domain.Emulator{}, 0, nil)

	_, _, err := svc.List(context.Background(), filter)
	assert.NoError(t, err)
}

func TestEmulatorService_GetByName_EmptyName(t *testing.T) {
	repo := new(testutil.MockEmulatorRepo)
	runRepo := new(testutil.MockInferenceRunRepo)
	store := new(testutil.MockArtifactStore)
	svc := NewEmulatorService(repo, runRepo, store)

	_, err := svc.GetByName(context.Background(), "", "v1")
	assert.ErrorIs(t, err, domain.ErrInvalidEmulatorName)
}

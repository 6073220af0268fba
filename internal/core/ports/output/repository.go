package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
)

type EmulatorListFilter struct {
	Status string
	Grid   string
	Search string
	SortBy string
	Order  string
	Limit  int
	Offset int
}

type RunListFilter struct {
	EmulatorID uuid.UUID
	Status     string
	StarName   string
	SortBy     string
	Order      string
	Limit      int
	Offset     int
}

type EmulatorRepository interface {
	Create(ctx context.Context, emulator *domain.Emulator) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Emulator, error)
	GetByNameVersion(ctx context.Context, name, version string) (*domain.Emulator, error)
	Update(ctx context.Context, emulator *domain.Emulator) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter EmulatorListFilter) ([]*domain.Emulator, int, error)
}

type InferenceRunRepository interface {
	Create(ctx context.Context, run *domain.InferenceRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.InferenceRun, error)
	Update(ctx context.Context, run *domain.InferenceRun) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter RunListFilter) ([]*domain.InferenceRun, int, error)

	// CountActiveByEmulator counts runs in non-terminal states referencing
	// the emulator. Used to guard emulator deletion.
	CountActiveByEmulator(ctx context.Context, emulatorID uuid.UUID) (int, error)

	// Claim atomically moves a PENDING run to RUNNING for the named runner,
	// so concurrent workers never execute the same run twice.
	Claim(ctx context.Context, id uuid.UUID, runner string) (*domain.InferenceRun, error)

	SaveResult(ctx context.Context, result *domain.RunResult) error
	GetResult(ctx context.Context, runID uuid.UUID) (*domain.RunResult, error)
}

package ports

import (
	"context"

	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
)

// RunLauncher hands a claimed inference run to an execution backend, either
// an in-process worker pool or a Kubernetes batch job.
type RunLauncher interface {
	// Runner names the backend, recorded on runs it executes
	Runner() string

	// Launch starts execution of the run and returns a backend identifier
	// (job name for cluster runs, empty for local ones)
	Launch(ctx context.Context, run *domain.InferenceRun) (string, error)

	// Stop aborts a launched run if the backend supports it
	Stop(ctx context.Context, run *domain.InferenceRun) error

	// IsAvailable checks if the backend is configured and reachable
	IsAvailable() bool
}

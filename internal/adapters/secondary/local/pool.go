// Package local executes inference runs on a bounded in-process worker pool.
package local

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
)

// ExecuteFunc claims and runs one inference run to completion. It is bound
// after construction to break the cycle between the pool and the run service.
type ExecuteFunc func(ctx context.Context, id uuid.UUID, runner string) error

// Pool is the in-process RunLauncher. Each launched run gets its own
// cancelable context so Stop can abort it individually; total concurrency is
// bounded by the worker limit, and Launch fails fast when every worker is
// busy rather than queueing.
type Pool struct {
	execute ExecuteFunc

	group   *errgroup.Group
	baseCtx context.Context
	stop    context.CancelFunc

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
}

func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	g := &errgroup.Group{}
	g.SetLimit(workers)

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		group:   g,
		baseCtx: ctx,
		stop:    cancel,
		cancels: make(map[uuid.UUID]context.CancelFunc),
	}
}

// SetExecutor binds the run executor. Must be called before Launch.
func (p *Pool) SetExecutor(fn ExecuteFunc) {
	p.execute = fn
}

func (p *Pool) Runner() string { return domain.RunnerLocal }

func (p *Pool) IsAvailable() bool { return p.execute != nil }

// Launch hands the run to a worker goroutine. The returned backend ID is
// empty: local runs are addressed by run ID alone.
func (p *Pool) Launch(_ context.Context, run *domain.InferenceRun) (string, error) {
	if p.execute == nil {
		return "", domain.ErrLauncherUnavailable
	}

	p.mu.Lock()
	if _, exists := p.cancels[run.ID]; exists {
		p.mu.Unlock()
		return "", fmt.Errorf("run %s is already executing", run.ID)
	}
	runCtx, cancel := context.WithCancel(p.baseCtx)
	p.cancels[run.ID] = cancel
	p.mu.Unlock()

	id := run.ID
	ok := p.group.TryGo(func() error {
		defer p.forget(id)
		// Run failures are recorded on the run itself, not the pool.
		_ = p.execute(runCtx, id, domain.RunnerLocal)
		return nil
	})
	if !ok {
		p.forget(id)
		return "", domain.ErrRunQueueFull
	}
	return "", nil
}

// Stop cancels the context of an executing run. The executor observes the
// cancellation and records the CANCELED status itself.
func (p *Pool) Stop(_ context.Context, run *domain.InferenceRun) error {
	p.mu.Lock()
	cancel, ok := p.cancels[run.ID]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("run %s is not executing in this pool", run.ID)
	}
	cancel()
	return nil
}

// Shutdown cancels every executing run and waits for the workers to drain,
// up to the context deadline.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.stop()

	done := make(chan struct{})
	go func() {
		if err := p.group.Wait(); err != nil {
			log.WithError(err).Warn("worker pool drained with error")
		}
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) forget(id uuid.UUID) {
	p.mu.Lock()
	if cancel, ok := p.cancels[id]; ok {
		cancel()
		delete(p.cancels, id)
	}
	p.mu.Unlock()
}

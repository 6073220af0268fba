package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
	ports "github.com/ojscutt/sl-pitchfork/internal/core/ports/output"
	"github.com/ojscutt/sl-pitchfork/internal/metrics"
	"github.com/ojscutt/sl-pitchfork/internal/sampling"
)

// InferenceRunService orchestrates the run lifecycle: creation against a
// READY emulator, dispatch to an execution backend, the nested sampling
// execution itself, and posterior retrieval.
type InferenceRunService struct {
	runRepo   ports.InferenceRunRepository
	emulators *EmulatorService
	store     ports.ArtifactStore
	launcher  ports.RunLauncher
	catalog   ports.CatalogClient

	samplerDefaults domain.SamplerSettings
}

func NewInferenceRunService(
	runRepo ports.InferenceRunRepository,
	emulators *EmulatorService,
	store ports.ArtifactStore,
	launcher ports.RunLauncher,
	catalog ports.CatalogClient,
) *InferenceRunService {
	return &InferenceRunService{
		runRepo:         runRepo,
		emulators:       emulators,
		store:           store,
		launcher:        launcher,
		catalog:         catalog,
		samplerDefaults: domain.DefaultSamplerSettings(),
	}
}

// SetSamplerDefaults overrides the settings applied to runs that specify
// none, typically from service configuration.
func (s *InferenceRunService) SetSamplerDefaults(def domain.SamplerSettings) {
	s.samplerDefaults = def.WithDefaults()
}

// Create validates and persists a PENDING run. When observations are empty
// and a star name is given, the observations are seeded from the catalog,
// keeping only observables the emulator predicts.
func (s *InferenceRunService) Create(
	ctx context.Context,
	name, description string,
	emulatorID uuid.UUID,
	star string,
	observations []domain.Observation,
	priorSpecs map[string]domain.PriorSpec,
	sampler domain.SamplerSettings,
) (*domain.InferenceRun, error) {
	em, err := s.emulators.Get(ctx, emulatorID)
	if err != nil {
		return nil, err
	}
	if !em.IsReady() {
		return nil, fmt.Errorf("%w: status is %s", domain.ErrEmulatorNotReady, em.Status)
	}

	if len(observations) == 0 && star != "" {
		observations, err = s.observationsFromCatalog(ctx, em, star)
		if err != nil {
			return nil, err
		}
	}

	if err := ValidateRunInputs(em, observations, priorSpecs); err != nil {
		return nil, err
	}

	sampler = sampler.WithDefaultsFrom(s.samplerDefaults)
	run, err := domain.NewInferenceRun(name, em.ID, observations, priorSpecs, sampler)
	if err != nil {
		return nil, err
	}
	run.Description = description
	run.Star = star

	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, err
	}
	return s.runRepo.GetByID(ctx, run.ID)
}

func (s *InferenceRunService) observationsFromCatalog(ctx context.Context, em *domain.Emulator, star string) ([]domain.Observation, error) {
	if s.catalog == nil || !s.catalog.IsAvailable() {
		return nil, domain.ErrCatalogUnavailable
	}
	st, err := s.catalog.GetStar(ctx, star)
	if err != nil {
		return nil, err
	}

	// The catalog may publish observables the emulator does not predict;
	// keep only the usable ones.
	obs := make([]domain.Observation, 0, len(st.Observations))
	for _, o := range st.Observations {
		if em.HasOutput(o.Name) {
			obs = append(obs, o)
		}
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: star %q has no observables predicted by emulator %s", domain.ErrNoObservations, star, em.Name)
	}
	return obs, nil
}

// Start dispatches a PENDING run to the configured execution backend. The
// run transitions to RUNNING when the backend claims it.
func (s *InferenceRunService) Start(ctx context.Context, id uuid.UUID) (*domain.InferenceRun, error) {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !run.CanStart() {
		return nil, fmt.Errorf("%w: status is %s", domain.ErrRunNotPending, run.Status)
	}
	if s.launcher == nil || !s.launcher.IsAvailable() {
		return nil, domain.ErrLauncherUnavailable
	}

	externalID, err := s.launcher.Launch(ctx, run)
	if err != nil {
		return nil, err
	}
	if externalID != "" {
		run.SetExternalID(externalID)
		if err := s.runRepo.Update(ctx, run); err != nil {
			return nil, err
		}
	}
	return s.runRepo.GetByID(ctx, id)
}

// CreateAndStart creates a run and immediately dispatches it. When dispatch
// fails the created run is returned alongside the error so it can be started
// again later.
func (s *InferenceRunService) CreateAndStart(
	ctx context.Context,
	name, description string,
	emulatorID uuid.UUID,
	star string,
	observations []domain.Observation,
	priorSpecs map[string]domain.PriorSpec,
	sampler domain.SamplerSettings,
) (*domain.InferenceRun, error) {
	run, err := s.Create(ctx, name, description, emulatorID, star, observations, priorSpecs, sampler)
	if err != nil {
		return nil, err
	}
	started, err := s.Start(ctx, run.ID)
	if err != nil {
		return run, err
	}
	return started, nil
}

// Execute claims a PENDING run and performs the nested sampling on the
// calling goroutine. It is the entry point of both the local worker pool and
// the cluster worker command. The terminal status is persisted with a fresh
// context so cancellation of the run context cannot lose it.
func (s *InferenceRunService) Execute(ctx context.Context, id uuid.UUID, runner string) error {
	run, err := s.runRepo.Claim(ctx, id, runner)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"run_id":   run.ID,
		"emulator": run.EmulatorID,
		"runner":   runner,
	}).Info("executing inference run")

	metrics.RunsActive.Inc()
	start := time.Now()
	execErr := s.execute(ctx, run)
	metrics.RunsActive.Dec()

	switch {
	case execErr == nil:
		run.MarkCompleted()
	case errors.Is(execErr, context.Canceled):
		run.MarkCanceled()
	default:
		run.MarkFailed(execErr.Error())
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.runRepo.Update(saveCtx, run); err != nil {
		log.WithError(err).WithField("run_id", run.ID).Error("failed to persist run status")
		if execErr == nil {
			execErr = err
		}
	}

	metrics.ObserveRun(string(run.Status), runner, time.Since(start))
	if execErr != nil && !errors.Is(execErr, context.Canceled) {
		log.WithError(execErr).WithField("run_id", run.ID).Warn("inference run failed")
	}
	return execErr
}

func (s *InferenceRunService) execute(ctx context.Context, run *domain.InferenceRun) error {
	eng, _, err := s.emulators.Engine(ctx, run.EmulatorID)
	if err != nil {
		return err
	}

	settings := run.Sampler.WithDefaults()
	obj, err := BuildObjective(eng, run.Observations, run.Priors, settings.LogLScale)
	if err != nil {
		return err
	}

	res, err := sampling.Run(ctx, obj.LogLikelihood, obj.PriorTransform, obj.NDim, sampling.Config{
		NLive:   settings.NLive,
		Walks:   settings.Walks,
		MaxIter: settings.MaxIter,
		DLogZ:   settings.DLogZ,
		Seed:    settings.Seed,
		Logger:  log.StandardLogger(),
	})
	if err != nil {
		return err
	}
	metrics.ObserveSampler(res.Niter, res.NCall)

	// Derive the resampling stream from the run seed so a seeded run yields
	// identical posterior draws on every execution.
	seed := settings.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	posterior, err := res.Posterior(rand.New(rand.NewSource(seed + 1)))
	if err != nil {
		return err
	}

	path, err := s.store.SaveSamples(ctx, "runs/"+run.ID.String()+".csv", obj.Parameters, posterior)
	if err != nil {
		return err
	}

	result, err := domain.NewRunResult(run.ID)
	if err != nil {
		return err
	}
	result.LogZ = res.FinalLogZ()
	result.LogZErr = res.LogZErr
	result.Information = res.H
	result.NIter = res.Niter
	result.NCalls = res.NCall
	result.Efficiency = res.Eff
	result.StopReason = res.StopReason
	result.NPosterior = len(posterior)
	result.SamplesPath = path
	for _, ps := range sampling.Summarize(posterior, obj.Parameters) {
		result.Posterior = append(result.Posterior, domain.ParameterSummary{
			Name:   ps.Name,
			Mean:   ps.Mean,
			Std:    ps.Std,
			Median: ps.Median,
			P16:    ps.P16,
			P84:    ps.P84,
		})
	}

	return s.runRepo.SaveResult(ctx, result)
}

// Cancel stops a PENDING or RUNNING run. Local runs are canceled through
// their execution context and record CANCELED themselves; cluster runs have
// their job deleted and are marked CANCELED here.
func (s *InferenceRunService) Cancel(ctx context.Context, id uuid.UUID) (*domain.InferenceRun, error) {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !run.CanCancel() {
		return nil, fmt.Errorf("%w: status is %s", domain.ErrRunNotCancelable, run.Status)
	}

	if run.Status == domain.RunStatusRunning && s.launcher != nil && s.launcher.Runner() == run.Runner {
		if err := s.launcher.Stop(ctx, run); err != nil {
			log.WithError(err).WithField("run_id", run.ID).Warn("failed to stop run backend")
		} else if run.Runner == domain.RunnerLocal {
			return s.runRepo.GetByID(ctx, id)
		}
	}

	run.MarkCanceled()
	if err := s.runRepo.Update(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Get returns a run, attaching the stored result once it has completed.
func (s *InferenceRunService) Get(ctx context.Context, id uuid.UUID) (*domain.InferenceRun, error) {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Status == domain.RunStatusCompleted {
		result, err := s.runRepo.GetResult(ctx, id)
		if err != nil && !errors.Is(err, domain.ErrResultNotFound) {
			return nil, err
		}
		run.Result = result
	}
	return run, nil
}

func (s *InferenceRunService) List(ctx context.Context, filter ports.RunListFilter) ([]*domain.InferenceRun, int, error) {
	if filter.Status != "" && !domain.RunStatus(filter.Status).IsValid() {
		return nil, 0, fmt.Errorf("%w: %q", domain.ErrInvalidRunStatus, filter.Status)
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return s.runRepo.List(ctx, filter)
}

// Delete removes a terminal run together with its stored samples.
func (s *InferenceRunService) Delete(ctx context.Context, id uuid.UUID) error {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !run.IsTerminal() {
		return fmt.Errorf("%w: status is %s", domain.ErrRunActive, run.Status)
	}

	result, err := s.runRepo.GetResult(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrResultNotFound) {
		return err
	}
	if result != nil && result.SamplesPath != "" {
		if err := s.store.Delete(ctx, result.SamplesPath); err != nil {
			log.WithError(err).WithField("run_id", id).Warn("failed to delete posterior samples")
		}
	}

	return s.runRepo.Delete(ctx, id)
}

// Posterior returns a page of the equally weighted posterior samples of a
// completed run.
func (s *InferenceRunService) Posterior(ctx context.Context, id uuid.UUID, offset, limit int) (*ports.SamplesPage, *domain.RunResult, error) {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if run.Status != domain.RunStatusCompleted {
		return nil, nil, fmt.Errorf("%w: status is %s", domain.ErrRunNotCompleted, run.Status)
	}

	result, err := s.runRepo.GetResult(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if limit <= 0 {
		limit = 1000
	}
	if limit > 10000 {
		limit = 10000
	}
	if offset < 0 {
		offset = 0
	}
	page, err := s.store.ReadSamples(ctx, result.SamplesPath, offset, limit)
	if err != nil {
		return nil, nil, err
	}
	return page, result, nil
}

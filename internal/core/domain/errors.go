package domain

import "errors"

// ============================================================================
// Emulator Registry Errors
// ============================================================================

// Not found errors
var (
	ErrEmulatorNotFound = errors.New("emulator not found")
)

// Validation errors
var (
	ErrInvalidEmulatorName = errors.New("emulator name is required")
	ErrInvalidEmulatorID   = errors.New("emulator ID is required")
	ErrMissingArtifact     = errors.New("emulator artifact is required")
	ErrEmulatorNotReady    = errors.New("emulator is not ready")
)

// Conflict errors
var (
	ErrEmulatorNameConflict = errors.New("emulator with this name and version already exists")
)

// Business rule errors
var (
	ErrEmulatorHasRuns = errors.New("cannot delete emulator: it still has inference runs")
)

// ============================================================================
// Inference Run Errors
// ============================================================================

// Not found errors
var (
	ErrRunNotFound    = errors.New("inference run not found")
	ErrResultNotFound = errors.New("inference run has no stored result")
)

// Validation errors
var (
	ErrInvalidRunName         = errors.New("run name is required")
	ErrInvalidRunID           = errors.New("run ID is required")
	ErrNoObservations         = errors.New("at least one observation is required")
	ErrInvalidObservation     = errors.New("invalid observation")
	ErrUnknownObservable      = errors.New("observation does not match any emulator output")
	ErrInvalidPriorSpec       = errors.New("invalid prior specification")
	ErrUnknownParameter       = errors.New("prior does not match any emulator input")
	ErrPriorOutsideGrid       = errors.New("prior support extends beyond the emulator training grid")
	ErrInvalidSamplerSettings = errors.New("invalid sampler settings")
	ErrInvalidRunStatus       = errors.New("invalid run status")
)

// Business rule errors
var (
	ErrRunNotPending    = errors.New("run can only be started from PENDING")
	ErrRunNotCancelable = errors.New("run is already finished")
	ErrRunNotCompleted  = errors.New("run has not completed")
	ErrRunActive        = errors.New("cannot delete an active run")
)

// ============================================================================
// Star Catalog Errors
// ============================================================================

var (
	ErrStarNotFound       = errors.New("star not found in catalog")
	ErrCatalogUnavailable = errors.New("star catalog is not configured")
)

// ============================================================================
// Launcher Errors
// ============================================================================

var (
	ErrLauncherUnavailable = errors.New("run launcher is not available")
	ErrRunQueueFull        = errors.New("run worker pool is full")
)

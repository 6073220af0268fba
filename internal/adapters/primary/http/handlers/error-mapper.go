package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
	"github.com/ojscutt/sl-pitchfork/internal/emulator"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// Not found errors
	case errors.Is(err, domain.ErrEmulatorNotFound),
		errors.Is(err, domain.ErrRunNotFound),
		errors.Is(err, domain.ErrResultNotFound),
		errors.Is(err, domain.ErrStarNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Conflict errors
	case errors.Is(err, domain.ErrEmulatorNameConflict),
		errors.Is(err, domain.ErrEmulatorHasRuns),
		errors.Is(err, domain.ErrRunNotPending),
		errors.Is(err, domain.ErrRunNotCancelable),
		errors.Is(err, domain.ErrRunNotCompleted),
		errors.Is(err, domain.ErrRunActive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	// Bad request / validation errors
	case errors.Is(err, domain.ErrInvalidEmulatorName),
		errors.Is(err, domain.ErrInvalidEmulatorID),
		errors.Is(err, domain.ErrMissingArtifact),
		errors.Is(err, domain.ErrEmulatorNotReady),
		errors.Is(err, domain.ErrInvalidRunName),
		errors.Is(err, domain.ErrInvalidRunID),
		errors.Is(err, domain.ErrNoObservations),
		errors.Is(err, domain.ErrInvalidObservation),
		errors.Is(err, domain.ErrUnknownObservable),
		errors.Is(err, domain.ErrInvalidPriorSpec),
		errors.Is(err, domain.ErrUnknownParameter),
		errors.Is(err, domain.ErrPriorOutsideGrid),
		errors.Is(err, domain.ErrInvalidSamplerSettings),
		errors.Is(err, domain.ErrInvalidRunStatus),
		errors.Is(err, emulator.ErrInvalidArtifact),
		errors.Is(err, emulator.ErrInputDimension),
		errors.Is(err, emulator.ErrNonPositiveInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// Service unavailable errors
	case errors.Is(err, domain.ErrCatalogUnavailable),
		errors.Is(err, domain.ErrLauncherUnavailable),
		errors.Is(err, domain.ErrRunQueueFull):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

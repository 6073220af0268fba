package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ojscutt/sl-pitchfork/internal/core/services"
)

type Handler struct {
	emulatorSvc *services.EmulatorService
	runSvc      *services.InferenceRunService
	starSvc     *services.StarService
}

func New(
	emulatorSvc *services.EmulatorService,
	runSvc *services.InferenceRunService,
	starSvc *services.StarService,
) *Handler {
	return &Handler{
		emulatorSvc: emulatorSvc,
		runSvc:      runSvc,
		starSvc:     starSvc,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Emulators
	r.GET("/emulators", h.ListEmulators)
	r.GET("/emulators/:id", h.GetEmulator)
	r.GET("/emulator", h.GetEmulatorByName)
	r.POST("/emulators", h.RegisterEmulator)
	r.PATCH("/emulators/:id", h.UpdateEmulator)
	r.DELETE("/emulators/:id", h.DeleteEmulator)

	// Emulator evaluation
	r.POST("/emulators/:id/predict", h.Predict)
	r.GET("/emulators/:id/ranges", h.GetParameterRanges)

	// Inference Runs
	r.GET("/runs", h.ListRuns)
	r.GET("/runs/:id", h.GetRun)
	r.POST("/runs", h.CreateRun)
	r.DELETE("/runs/:id", h.DeleteRun)

	// Run Actions
	r.POST("/runs/:id/start", h.StartRun)
	r.POST("/runs/:id/cancel", h.CancelRun)
	r.GET("/runs/:id/posterior", h.GetPosterior)

	// Create + start convenience
	r.POST("/sample", h.Sample)

	// Star Catalog
	r.GET("/stars/:name/observations", h.GetStarObservations)
}

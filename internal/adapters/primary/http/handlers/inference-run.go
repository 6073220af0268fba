package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ojscutt/sl-pitchfork/internal/adapters/primary/http/dto"
	ports "github.com/ojscutt/sl-pitchfork/internal/core/ports/output"
)

func (h *Handler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := ports.RunListFilter{
		Status:   c.Query("status"),
		StarName: c.Query("star"),
		SortBy:   c.Query("sort_by"),
		Order:    c.Query("order"),
		Limit:    limit,
		Offset:   offset,
	}
	if raw := c.Query("emulator_id"); raw != "" {
		emulatorID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid emulator_id filter"})
			return
		}
		filter.EmulatorID = emulatorID
	}

	runs, total, err := h.runSvc.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list runs failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.InferenceRunResponse, 0, len(runs))
	for _, run := range runs {
		items = append(items, dto.ToInferenceRunResponse(run))
	}

	c.JSON(http.StatusOK, dto.ListInferenceRunsResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, err := h.runSvc.Get(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToInferenceRunResponse(run))
}

func (h *Handler) CreateRun(c *gin.Context) {
	var req dto.CreateInferenceRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.runSvc.Create(
		c.Request.Context(),
		req.Name, req.Description, req.EmulatorID, req.Star,
		dto.ToObservations(req.Observations),
		dto.ToPriorSpecs(req.Priors),
		dto.ToSamplerSettings(req.Sampler),
	)
	if err != nil {
		log.WithError(err).Error("create run failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToInferenceRunResponse(run))
}

func (h *Handler) DeleteRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	if err := h.runSvc.Delete(c.Request.Context(), id); err != nil {
		log.WithError(err).Error("delete run failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) StartRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, err := h.runSvc.Start(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Error("start run failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.ToInferenceRunResponse(run))
}

func (h *Handler) CancelRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, err := h.runSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Error("cancel run failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToInferenceRunResponse(run))
}

// Sample is the create-and-start convenience: one POST takes observations to
// a queued sampling run.
func (h *Handler) Sample(c *gin.Context) {
	var req dto.CreateInferenceRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.runSvc.CreateAndStart(
		c.Request.Context(),
		req.Name, req.Description, req.EmulatorID, req.Star,
		dto.ToObservations(req.Observations),
		dto.ToPriorSpecs(req.Priors),
		dto.ToSamplerSettings(req.Sampler),
	)
	if err != nil {
		if run != nil {
			// Created but not dispatched: report the run so the caller can
			// retry the start.
			log.WithError(err).Warn("run created but dispatch failed")
			c.JSON(http.StatusAccepted, gin.H{
				"run":   dto.ToInferenceRunResponse(run),
				"error": err.Error(),
			})
			return
		}
		log.WithError(err).Error("sample failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.ToInferenceRunResponse(run))
}

func (h *Handler) GetPosterior(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "1000"))

	page, result, err := h.runSvc.Posterior(c.Request.Context(), id, offset, limit)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	summary := dto.ToRunResultResponse(result)
	c.JSON(http.StatusOK, dto.PosteriorResponse{
		RunID:      id,
		Summary:    summary.Posterior,
		Parameters: page.Header,
		Samples:    page.Rows,
		Total:      page.Total,
		Offset:     offset,
		NextOffset: offset + len(page.Rows),
	})
}

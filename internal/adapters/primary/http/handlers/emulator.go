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

func (h *Handler) ListEmulators(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := ports.EmulatorListFilter{
		Status: c.Query("status"),
		Grid:   c.Query("grid"),
		Search: c.Query("search"),
		SortBy: c.Query("sort_by"),
		Order:  c.Query("order"),
		Limit:  limit,
		Offset: offset,
	}

	emulators, total, err := h.emulatorSvc.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list emulators failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.EmulatorResponse, 0, len(emulators))
	for _, em := range emulators {
		items = append(items, dto.ToEmulatorResponse(em))
	}

	c.JSON(http.StatusOK, dto.ListEmulatorsResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetEmulator(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid emulator id"})
		return
	}

	em, err := h.emulatorSvc.Get(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEmulatorResponse(em))
}

func (h *Handler) GetEmulatorByName(c *gin.Context) {
	name := c.Query("name")
	version := c.Query("version")

	em, err := h.emulatorSvc.GetByName(c.Request.Context(), name, version)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEmulatorResponse(em))
}

func (h *Handler) RegisterEmulator(c *gin.Context) {
	var req dto.RegisterEmulatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	em, err := h.emulatorSvc.Register(
		c.Request.Context(),
		req.Name, req.Version, req.Description, req.ArtifactPath, req.Labels,
	)
	if err != nil {
		log.WithError(err).Error("register emulator failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToEmulatorResponse(em))
}

func (h *Handler) UpdateEmulator(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid emulator id"})
		return
	}

	var req dto.UpdateEmulatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Version != nil {
		updates["version"] = *req.Version
	}
	if req.Labels != nil {
		updates["labels"] = req.Labels
	}

	em, err := h.emulatorSvc.Update(c.Request.Context(), id, updates)
	if err != nil {
		log.WithError(err).Error("update emulator failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEmulatorResponse(em))
}

func (h *Handler) DeleteEmulator(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid emulator id"})
		return
	}

	if err := h.emulatorSvc.Delete(c.Request.Context(), id); err != nil {
		log.WithError(err).Error("delete emulator failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) Predict(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid emulator id"})
		return
	}

	var req dto.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	values, em, err := h.emulatorSvc.Predict(c.Request.Context(), id, req.Inputs)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PredictResponse{
		EmulatorID: em.ID,
		Inputs:     em.Inputs,
		Outputs:    em.OutputNames(),
		Values:     values,
		Count:      len(values),
	})
}

func (h *Handler) GetParameterRanges(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid emulator id"})
		return
	}

	em, err := h.emulatorSvc.Get(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	ranges := make(map[string]dto.ParameterRangeDTO, len(em.ParameterRanges))
	for name, r := range em.ParameterRanges {
		ranges[name] = dto.ParameterRangeDTO{Min: r.Min, Max: r.Max}
	}

	c.JSON(http.StatusOK, dto.ParameterRangesResponse{
		EmulatorID: em.ID,
		GridName:   em.GridName,
		Ranges:     ranges,
	})
}

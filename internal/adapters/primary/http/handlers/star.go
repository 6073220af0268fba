package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ojscutt/sl-pitchfork/internal/adapters/primary/http/dto"
)

func (h *Handler) GetStarObservations(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "star name is required"})
		return
	}

	star, err := h.starSvc.Get(c.Request.Context(), name)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToStarResponse(star))
}

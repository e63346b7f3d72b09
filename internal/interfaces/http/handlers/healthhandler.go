package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/helpdeck/helpdeck/internal/shared/biztime"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Check reports process liveness. Public by route policy.
func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   biztime.FormatMetadataTime(biztime.NowUTC()),
	})
}

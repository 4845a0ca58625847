package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/driftline/market-sandbox/internal/stream"
)

// StatsHandler exposes the live connection registry to operators.
type StatsHandler struct {
	registry *stream.Registry
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(registry *stream.Registry) *StatsHandler {
	return &StatsHandler{registry: registry}
}

// Get returns a snapshot of all open stream connections.
// GET /api/v1/stream/stats (requires bearer token)
func (h *StatsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"active":      h.registry.Count(),
		"connections": h.registry.Snapshot(),
	})
}

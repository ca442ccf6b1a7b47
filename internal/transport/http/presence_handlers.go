package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vovakirdan/wiremap-server/internal/core"
)

// PresenceHandlers exposes the registry to non-socket consumers.
type PresenceHandlers struct {
	hub *core.Hub
}

// NewPresenceHandlers creates presence handlers backed by the hub.
func NewPresenceHandlers(hub *core.Hub) *PresenceHandlers {
	return &PresenceHandlers{hub: hub}
}

// Snapshot returns every known participant keyed by id.
// GET /api/presence
func (h *PresenceHandlers) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, snapshotToProto(h.hub.Snapshot()))
}

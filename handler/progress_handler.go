package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/aigroupchat/voicechat-be/service"
)

type ProgressHandler struct {
	hub *service.ProgressHub
}

func NewProgressHandler(hub *service.ProgressHub) *ProgressHandler {
	return &ProgressHandler{
		hub: hub,
	}
}

// HandleProgress upgrades to a websocket streaming the owner's ingest
// events.
func (h *ProgressHandler) HandleProgress(c *gin.Context) {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		sendBadRequest(c, "owner_id is required")
		return
	}
	h.hub.HandleProgress(c.Writer, c.Request, ownerID)
}

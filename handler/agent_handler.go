package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aigroupchat/voicechat-be/service"
	"github.com/aigroupchat/voicechat-be/types"
)

type AgentHandler struct {
	agents *service.AgentService
}

func NewAgentHandler(agents *service.AgentService) *AgentHandler {
	return &AgentHandler{
		agents: agents,
	}
}

func (h *AgentHandler) HandleCreate(c *gin.Context) {
	var req types.CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBadRequest(c, "Invalid request body")
		return
	}
	if req.OwnerID == "" {
		sendBadRequest(c, "owner_id is required")
		return
	}

	agent, err := h.agents.CreateAgent(c.Request.Context(), req.OwnerID, req)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

func (h *AgentHandler) HandleList(c *gin.Context) {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		sendBadRequest(c, "owner_id is required")
		return
	}
	agents, err := h.agents.ListAgents(c.Request.Context(), ownerID)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, agents)
}

func (h *AgentHandler) HandleGet(c *gin.Context) {
	ownerID := c.Query("owner_id")
	agent, err := h.agents.GetAgent(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

func (h *AgentHandler) HandleDelete(c *gin.Context) {
	ownerID := c.Query("owner_id")
	if err := h.agents.DeleteAgent(c.Request.Context(), ownerID, c.Param("id")); err != nil {
		sendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AgentHandler) HandleLinkDocuments(c *gin.Context) {
	var req types.LinkDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBadRequest(c, "Invalid request body")
		return
	}
	ownerID := c.Query("owner_id")
	if err := h.agents.LinkDocuments(c.Request.Context(), ownerID, c.Param("id"), req.DocumentIDs); err != nil {
		sendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AgentHandler) HandleUnlinkDocument(c *gin.Context) {
	ownerID := c.Query("owner_id")
	if err := h.agents.UnlinkDocument(c.Request.Context(), ownerID, c.Param("id"), c.Param("docId")); err != nil {
		sendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AgentHandler) HandleListDocuments(c *gin.Context) {
	ownerID := c.Query("owner_id")
	docIDs, err := h.agents.ListAgentDocuments(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		sendError(c, err)
		return
	}
	if docIDs == nil {
		docIDs = []string{}
	}
	c.JSON(http.StatusOK, docIDs)
}

func (h *AgentHandler) HandleTemplates(c *gin.Context) {
	sendSuccess(c, service.AgentTemplates())
}

func (h *AgentHandler) HandleTemplateByType(c *gin.Context) {
	sendSuccess(c, service.AgentTemplateByType(c.Param("type")))
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aigroupchat/voicechat-be/service"
	"github.com/aigroupchat/voicechat-be/types"
)

type SearchHandler struct {
	retrieval *service.RetrievalService
	context   *service.ContextService
}

func NewSearchHandler(retrieval *service.RetrievalService, context *service.ContextService) *SearchHandler {
	return &SearchHandler{
		retrieval: retrieval,
		context:   context,
	}
}

// HandleSearch runs one hybrid query and returns the ranked hits.
func (h *SearchHandler) HandleSearch(c *gin.Context) {
	var req types.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBadRequest(c, "Invalid request body")
		return
	}
	if req.OwnerID == "" {
		sendBadRequest(c, "owner_id is required")
		return
	}

	results, _, err := h.retrieval.Retrieve(c.Request.Context(), req.Query, req.OwnerID, req.AgentID, req.TopK, 0)
	if err != nil {
		sendError(c, err)
		return
	}
	if results == nil {
		results = []types.SearchResult{}
	}
	c.JSON(http.StatusOK, results)
}

// HandleContext returns a formatted context block for one utterance.
func (h *SearchHandler) HandleContext(c *gin.Context) {
	var req types.ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBadRequest(c, "Invalid request body")
		return
	}
	if req.OwnerID == "" {
		sendBadRequest(c, "owner_id is required")
		return
	}

	resp, err := h.context.GetContext(c.Request.Context(), req.Query, req.OwnerID, req.AgentID)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

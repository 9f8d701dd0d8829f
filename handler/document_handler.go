package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aigroupchat/voicechat-be/service"
	"github.com/aigroupchat/voicechat-be/types"
)

const maxUploadSize = 20 << 20

type DocumentHandler struct {
	documents *service.DocumentService
}

func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
	}
}

// HandleUpload ingests one multipart file. The document type comes from
// the form when set, else from the file extension.
func (h *DocumentHandler) HandleUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		sendBadRequest(c, "Invalid file")
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, types.DataResponse{
			Status:  "error",
			Message: "File too large",
		})
		return
	}

	ownerID := c.Request.FormValue("owner_id")
	title := c.Request.FormValue("title")
	if title == "" {
		title = header.Filename
	}
	docType := c.Request.FormValue("type")
	if docType == "" {
		docType = docTypeFromFilename(header.Filename)
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		sendBadRequest(c, "Failed to read file")
		return
	}

	resp, err := h.documents.Upload(c.Request.Context(), ownerID, title, docType, data)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DocumentHandler) HandleList(c *gin.Context) {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		sendBadRequest(c, "owner_id is required")
		return
	}
	items, err := h.documents.ListDocuments(c.Request.Context(), ownerID)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *DocumentHandler) HandleGet(c *gin.Context) {
	ownerID := c.Query("owner_id")
	id := c.Param("id")
	doc, chunks, err := h.documents.GetDocumentWithChunks(c.Request.Context(), ownerID, id)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, gin.H{
		"document": doc,
		"sections": chunks,
	})
}

func (h *DocumentHandler) HandleDelete(c *gin.Context) {
	ownerID := c.Query("owner_id")
	id := c.Param("id")
	if err := h.documents.DeleteDocument(c.Request.Context(), ownerID, id); err != nil {
		sendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DocumentHandler) HandleStats(c *gin.Context) {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		sendBadRequest(c, "owner_id is required")
		return
	}
	stats, err := h.documents.ContextualStats(c.Request.Context(), ownerID)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func docTypeFromFilename(name string) string {
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		return types.DocumentTypePDF
	}
	return types.DocumentTypeText
}

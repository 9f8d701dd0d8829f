package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aigroupchat/voicechat-be/types"
)

func sendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, types.DataResponse{
		Status: "success",
		Data:   data,
	})
}

func sendError(c *gin.Context, err error) {
	c.JSON(statusFromError(err), types.DataResponse{
		Status:  "error",
		Message: err.Error(),
	})
}

func sendBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, types.DataResponse{
		Status:  "error",
		Message: message,
	})
}

// statusFromError maps the domain error kinds onto HTTP statuses.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, types.ErrInvalidInput),
		errors.Is(err, types.ErrUnsupportedType),
		errors.Is(err, types.ErrCorruptInput),
		errors.Is(err, types.ErrEmptyDocument):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrCapacityExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, types.ErrBackendTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, types.ErrBackendError):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Package handler implements the gin handlers of the dashboard API.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sellerdash/backend/internal/infrastructure/logger"
	"github.com/sellerdash/backend/internal/interfaces/http/dto"
	"github.com/sellerdash/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides the response helpers shared by all handlers
type BaseHandler struct{}

// Success writes a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessList writes a 200 list response
func (h *BaseHandler) SuccessList(c *gin.Context, data any, total, limit int) {
	c.JSON(http.StatusOK, dto.NewListResponse(data, total, limit))
}

// Accepted writes a 202 response
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error writes an error response with an explicit status
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest writes a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// ValidationError writes a 400 response listing the invalid fields of err
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// HandleError maps err to its API error code and status. Unknown errors are
// logged and reported as 500 without their message.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	code := dto.ErrorCodeFor(err)
	status := dto.GetHTTPStatus(code)
	message := err.Error()
	if code == dto.ErrCodeInternal {
		logger.GetGinLogger(c).Error("Request failed", zap.Error(err))
		message = "An unexpected error occurred"
	}
	h.Error(c, status, code, message)
}

package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sellerdash/backend/internal/interfaces/http/dto"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker func(ctx context.Context) error

// SystemHandler serves health and system endpoints
type SystemHandler struct {
	BaseHandler
	version   string
	startTime time.Time
	checks    map[string]HealthChecker
}

// NewSystemHandler creates a SystemHandler. checks are run by Health.
func NewSystemHandler(version string, checks map[string]HealthChecker) *SystemHandler {
	return &SystemHandler{
		version:   version,
		startTime: time.Now(),
		checks:    checks,
	}
}

// HealthResponse is the health check result
type HealthResponse struct {
	Status  string            `json:"status" example:"healthy"`
	Version string            `json:"version" example:"1.0.0"`
	Uptime  string            `json:"uptime" example:"1h30m45s"`
	Go      string            `json:"go_version" example:"go1.25.5"`
	Checks  map[string]string `json:"checks"`
}

// Health godoc
// @ID           getHealth
// @Summary      Health check
// @Description  Reports the service status and the reachability of its dependencies
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=HealthResponse}
// @Failure      503 {object} dto.Response{data=HealthResponse}
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:  "healthy",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
		Go:      runtime.Version(),
		Checks:  make(map[string]string, len(h.checks)),
	}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	c.JSON(status, dto.Response{Success: status == http.StatusOK, Data: resp})
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping godoc
// @ID           pingSystem
// @Summary      Ping the API
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=PingResponse}
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

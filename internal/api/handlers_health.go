// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	driver  string
	jobs    JobManager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version, driver string, jobs JobManager) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		driver:  driver,
		jobs:    jobs,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	running := false
	if h.jobs != nil {
		running = h.jobs.Running()
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"version":         h.version,
		"storage":         h.driver,
		"importerRunning": running,
	})
}

// handlers_import.go - Import job handlers
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vbc-logbook/backend/internal/jobs"
)

// ImportHandlerImpl implements the ImportHandler interface
type ImportHandlerImpl struct {
	jobs          JobManager
	pollInterval  time.Duration
	streamTimeout time.Duration
}

// NewImportHandler creates a new import handler instance
func NewImportHandler(jobMgr JobManager, pollInterval time.Duration) ImportHandler {
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	return &ImportHandlerImpl{
		jobs:          jobMgr,
		pollInterval:  pollInterval,
		streamTimeout: 30 * time.Minute,
	}
}

// HandleStartImport starts an import of the connected controller
func (h *ImportHandlerImpl) HandleStartImport(c echo.Context) error {
	job, err := h.jobs.Start(c.Request().Context())
	if errors.Is(err, jobs.ErrImportRunning) {
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"code":    "CONFLICT",
			"message": err.Error(),
			"job":     job,
		})
	}
	if err != nil {
		return NewInternalError("failed to start import", err)
	}
	return c.JSON(http.StatusAccepted, job)
}

// HandleLatestImport returns the most recent import job
func (h *ImportHandlerImpl) HandleLatestImport(c echo.Context) error {
	job, ok := h.jobs.Latest()
	if !ok {
		return NewNotFoundError("import job", "latest")
	}
	return c.JSON(http.StatusOK, job)
}

// HandleImportStatus returns the current status of an import job
func (h *ImportHandlerImpl) HandleImportStatus(c echo.Context) error {
	id := c.Param("jobId")
	if id == "" {
		return NewValidationError("jobId")
	}
	job, err := h.jobs.Get(id)
	if err != nil {
		return fromDomainError("import job", id, err)
	}
	return c.JSON(http.StatusOK, job)
}

// HandleCancelImport cancels a running import; its writes are rolled back
func (h *ImportHandlerImpl) HandleCancelImport(c echo.Context) error {
	id := c.Param("jobId")
	if id == "" {
		return NewValidationError("jobId")
	}
	if err := h.jobs.Cancel(id); err != nil {
		return fromDomainError("import job", id, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleImportProgressStream streams import progress via SSE
func (h *ImportHandlerImpl) HandleImportProgressStream(c echo.Context) error {
	id := c.Param("jobId")
	if id == "" {
		return NewValidationError("jobId")
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	job, err := h.jobs.Get(id)
	if err != nil {
		sendSSEError(c, "import job not found")
		return nil
	}
	sendSSEData(c, job.Status)
	if job.Done() {
		return nil
	}
	last := job.Status

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	timeout := time.NewTimer(h.streamTimeout)
	defer timeout.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil

		case <-ticker.C:
			job, err := h.jobs.Get(id)
			if err != nil {
				sendSSEError(c, "import job not found")
				return nil
			}
			if job.Status != last {
				sendSSEData(c, job.Status)
				last = job.Status
			}
			if job.Done() {
				return nil
			}

		case <-timeout.C:
			sendSSEError(c, "stream timeout")
			return nil
		}
	}
}

func sendSSEData(c echo.Context, data interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(c.Response(), "data: %s\n\n", jsonData)
	c.Response().Flush()
}

func sendSSEError(c echo.Context, message string) {
	sendSSEData(c, map[string]string{"error": message})
}

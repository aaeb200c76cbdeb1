// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/vbc-logbook/backend/internal/jobs"
	"github.com/vbc-logbook/backend/internal/models"
)

// ImportHandler handles import jobs
type ImportHandler interface {
	HandleStartImport(c echo.Context) error
	HandleLatestImport(c echo.Context) error
	HandleImportStatus(c echo.Context) error
	HandleImportProgressStream(c echo.Context) error
	HandleCancelImport(c echo.Context) error
}

// LogbookHandler handles the query side of the logbook
type LogbookHandler interface {
	HandleGetGear(c echo.Context) error
	HandleGetCycles(c echo.Context) error
	HandleGetWeeks(c echo.Context) error
	HandleGetSeasons(c echo.Context) error
	HandleGetFlightInfo(c echo.Context) error
	HandleGetEventLog(c echo.Context) error
	HandleGetTelemetry(c echo.Context) error
	HandleGetModelInfo(c echo.Context) error
	HandleSetModelInfo(c echo.Context) error
	HandleGetModelImage(c echo.Context) error
	HandleSetModelImage(c echo.Context) error
	HandleDeleteModelImage(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// JobManager defines the interface for import job management
// This allows mocking in tests
type JobManager interface {
	Start(ctx context.Context) (jobs.Job, error)
	Get(id string) (jobs.Job, error)
	Latest() (jobs.Job, bool)
	Running() bool
	Cancel(id string) error
}

// LogbookService is the read and annotate side of the store.
type LogbookService interface {
	Gear(ctx context.Context, from, to string) (*models.Gear, error)
	Cycles(ctx context.Context, f models.CycleFilter) (models.CycleReport, error)
	Weeks(ctx context.Context, f models.CycleFilter, groupBy string) ([]models.WeekBucket, error)
	Seasons(ctx context.Context) ([]models.Season, error)
	FlightInfo(ctx context.Context, logID int64) (*models.FlightInfo, error)
	EventLog(ctx context.Context, logID int64) ([]models.EventLogLine, error)
	Telemetry(ctx context.Context, logID int64) (models.TelemetryView, error)
	ModelInfo(ctx context.Context, modelID int64) (*models.ModelInfo, error)
	SetModelInfo(ctx context.Context, modelID int64, info string) error
	SetModelImage(ctx context.Context, modelID int64, image []byte) error
}

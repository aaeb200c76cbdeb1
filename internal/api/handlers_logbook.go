// handlers_logbook.go - Logbook query and model annotation handlers
package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/vbc-logbook/backend/internal/models"
	"github.com/vbc-logbook/backend/internal/report"
)

const dateLayout = "2006-01-02"

// maxImageSize caps model image uploads.
const maxImageSize = 4 << 20

// LogbookHandlerImpl implements the LogbookHandler interface
type LogbookHandlerImpl struct {
	service LogbookService
}

// NewLogbookHandler creates a new logbook handler instance
func NewLogbookHandler(service LogbookService) LogbookHandler {
	return &LogbookHandlerImpl{service: service}
}

// HandleGetGear returns batteries and models flown in [from, to)
func (h *LogbookHandlerImpl) HandleGetGear(c echo.Context) error {
	from, to, err := dateRangeParams(c)
	if err != nil {
		return err
	}
	gear, err := h.service.Gear(c.Request().Context(), from, to)
	if err != nil {
		return NewInternalError("failed to load gear", err)
	}
	return c.JSON(http.StatusOK, gear)
}

// HandleGetCycles returns the filtered cycle listing with totals
func (h *LogbookHandlerImpl) HandleGetCycles(c echo.Context) error {
	filter, err := cycleFilterParams(c)
	if err != nil {
		return err
	}
	cycles, err := h.service.Cycles(c.Request().Context(), filter)
	if err != nil {
		return NewInternalError("failed to load cycles", err)
	}
	return c.JSON(http.StatusOK, cycles)
}

// HandleGetWeeks returns per-week flight counts
func (h *LogbookHandlerImpl) HandleGetWeeks(c echo.Context) error {
	filter, err := cycleFilterParams(c)
	if err != nil {
		return err
	}
	groupBy := c.QueryParam("groupBy")
	switch groupBy {
	case "":
		groupBy = report.GroupByModel
	case report.GroupByModel, report.GroupByBattery:
	default:
		return NewValidationError("groupBy")
	}
	weeks, err := h.service.Weeks(c.Request().Context(), filter, groupBy)
	if err != nil {
		return NewInternalError("failed to load weeks", err)
	}
	return c.JSON(http.StatusOK, weeks)
}

// HandleGetSeasons returns flight counts per year
func (h *LogbookHandlerImpl) HandleGetSeasons(c echo.Context) error {
	seasons, err := h.service.Seasons(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to load seasons", err)
	}
	return c.JSON(http.StatusOK, seasons)
}

// HandleGetFlightInfo returns the identity of one flight
func (h *LogbookHandlerImpl) HandleGetFlightInfo(c echo.Context) error {
	logID, err := idParam(c, "logId")
	if err != nil {
		return err
	}
	info, err := h.service.FlightInfo(c.Request().Context(), logID)
	if err != nil {
		return fromDomainError("flight", c.Param("logId"), err)
	}
	return c.JSON(http.StatusOK, info)
}

// HandleGetEventLog returns the stored event log of one flight
func (h *LogbookHandlerImpl) HandleGetEventLog(c echo.Context) error {
	logID, err := idParam(c, "logId")
	if err != nil {
		return err
	}
	lines, err := h.service.EventLog(c.Request().Context(), logID)
	if err != nil {
		return NewInternalError("failed to load event log", err)
	}
	return c.JSON(http.StatusOK, lines)
}

// HandleGetTelemetry returns the aligned telemetry of one flight, as
// msgpack when asked for with ?format=msgpack or an Accept header
func (h *LogbookHandlerImpl) HandleGetTelemetry(c echo.Context) error {
	logID, err := idParam(c, "logId")
	if err != nil {
		return err
	}
	view, err := h.service.Telemetry(c.Request().Context(), logID)
	if err != nil {
		return NewInternalError("failed to load telemetry", err)
	}

	if wantsMsgpack(c) {
		data, err := msgpack.Marshal(view)
		if err != nil {
			return NewInternalError("failed to encode msgpack", err)
		}
		return c.Blob(http.StatusOK, "application/msgpack", data)
	}
	return c.JSON(http.StatusOK, view)
}

// HandleGetModelInfo returns a model with its flight statistics
func (h *LogbookHandlerImpl) HandleGetModelInfo(c echo.Context) error {
	modelID, err := idParam(c, "modelId")
	if err != nil {
		return err
	}
	info, err := h.service.ModelInfo(c.Request().Context(), modelID)
	if err != nil {
		return fromDomainError("model", c.Param("modelId"), err)
	}
	return c.JSON(http.StatusOK, info)
}

type modelInfoRequest struct {
	Info string `json:"info"`
}

// HandleSetModelInfo stores the free text notes of a model
func (h *LogbookHandlerImpl) HandleSetModelInfo(c echo.Context) error {
	modelID, err := idParam(c, "modelId")
	if err != nil {
		return err
	}
	var req modelInfoRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if err := h.service.SetModelInfo(c.Request().Context(), modelID, req.Info); err != nil {
		return fromDomainError("model", c.Param("modelId"), err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleGetModelImage returns the stored image of a model
func (h *LogbookHandlerImpl) HandleGetModelImage(c echo.Context) error {
	modelID, err := idParam(c, "modelId")
	if err != nil {
		return err
	}
	info, err := h.service.ModelInfo(c.Request().Context(), modelID)
	if err != nil {
		return fromDomainError("model", c.Param("modelId"), err)
	}
	if len(info.Image) == 0 {
		return NewNotFoundError("model image", c.Param("modelId"))
	}
	return c.Blob(http.StatusOK, http.DetectContentType(info.Image), info.Image)
}

// HandleSetModelImage replaces a model image with the raw request body
func (h *LogbookHandlerImpl) HandleSetModelImage(c echo.Context) error {
	modelID, err := idParam(c, "modelId")
	if err != nil {
		return err
	}
	image, err := io.ReadAll(io.LimitReader(c.Request().Body, maxImageSize+1))
	if err != nil {
		return NewBadRequestError("failed to read image", err)
	}
	if len(image) == 0 {
		return NewValidationError("image")
	}
	if len(image) > maxImageSize {
		return NewBadRequestError("image too large", nil)
	}
	if err := h.service.SetModelImage(c.Request().Context(), modelID, image); err != nil {
		return fromDomainError("model", c.Param("modelId"), err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleDeleteModelImage clears a model image
func (h *LogbookHandlerImpl) HandleDeleteModelImage(c echo.Context) error {
	modelID, err := idParam(c, "modelId")
	if err != nil {
		return err
	}
	if err := h.service.SetModelImage(c.Request().Context(), modelID, nil); err != nil {
		return fromDomainError("model", c.Param("modelId"), err)
	}
	return c.NoContent(http.StatusNoContent)
}

func wantsMsgpack(c echo.Context) bool {
	if c.QueryParam("format") == "msgpack" {
		return true
	}
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), "application/msgpack")
}

func idParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, NewValidationError(name)
	}
	return id, nil
}

func dateRangeParams(c echo.Context) (string, string, error) {
	from, to := c.QueryParam("from"), c.QueryParam("to")
	for name, v := range map[string]string{"from": from, "to": to} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, v); err != nil {
			return "", "", NewValidationError(name)
		}
	}
	return from, to, nil
}

func cycleFilterParams(c echo.Context) (models.CycleFilter, error) {
	from, to, err := dateRangeParams(c)
	if err != nil {
		return models.CycleFilter{}, err
	}
	f := models.CycleFilter{From: from, To: to}
	if v := c.QueryParam("modelId"); v != "" {
		if f.ModelID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return f, NewValidationError("modelId")
		}
	}
	if v := c.QueryParam("batteryId"); v != "" {
		if f.BatteryID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return f, NewValidationError("batteryId")
		}
	}
	if v := c.QueryParam("all"); v != "" {
		if f.AllCycles, err = strconv.ParseBool(v); err != nil {
			return f, NewValidationError("all")
		}
	}
	return f, nil
}

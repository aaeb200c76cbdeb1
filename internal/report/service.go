package report

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/vbc-logbook/backend/internal/align"
	"github.com/vbc-logbook/backend/internal/models"
)

// Querier is the read side of the log store.
type Querier interface {
	Batteries(ctx context.Context, from, to string) ([]models.BatterySummary, error)
	Models(ctx context.Context, from, to string) ([]models.ModelSummary, error)
	Cycles(ctx context.Context, f models.CycleFilter) ([]models.Cycle, error)
	Seasons(ctx context.Context) ([]models.Season, error)
	FlightInfo(ctx context.Context, logID int64) (*models.FlightInfo, error)
	Model(ctx context.Context, modelID int64) (*models.ModelInfo, error)
	EventLog(ctx context.Context, logID int64) ([]models.EventLogLine, error)
	TelemetryLog(ctx context.Context, logID int64) ([]models.TelemetryLogLine, error)
	GpsLog(ctx context.Context, logID int64) ([]models.GpsLogLine, error)
	SetModelInfo(ctx context.Context, modelID int64, info string) error
	SetModelImage(ctx context.Context, modelID int64, image []byte) error
}

// Service answers logbook queries on top of a Querier.
type Service struct {
	store Querier
}

func NewService(store Querier) *Service {
	return &Service{store: store}
}

// Gear returns batteries and models flown in [from, to). Models without a
// stored thumb get a default asset name.
func (s *Service) Gear(ctx context.Context, from, to string) (*models.Gear, error) {
	batteries, err := s.store.Batteries(ctx, from, to)
	if err != nil {
		return nil, err
	}
	modelList, err := s.store.Models(ctx, from, to)
	if err != nil {
		return nil, err
	}
	for i := range modelList {
		if modelList[i].Thumb == nil {
			modelList[i].ThumbID = DefaultThumb(modelList[i].Type)
		}
	}
	return &models.Gear{Batteries: batteries, Models: modelList}, nil
}

// Cycles returns the filtered cycle listing with sessions and totals.
func (s *Service) Cycles(ctx context.Context, f models.CycleFilter) (models.CycleReport, error) {
	cycles, err := s.store.Cycles(ctx, f)
	if err != nil {
		return models.CycleReport{}, err
	}
	return Summarize(cycles), nil
}

// Weeks returns per-week flight counts grouped by model or battery.
func (s *Service) Weeks(ctx context.Context, f models.CycleFilter, groupBy string) ([]models.WeekBucket, error) {
	f.AllCycles = false
	cycles, err := s.store.Cycles(ctx, f)
	if err != nil {
		return nil, err
	}
	return Weeks(cycles, groupBy), nil
}

func (s *Service) Seasons(ctx context.Context) ([]models.Season, error) {
	return s.store.Seasons(ctx)
}

func (s *Service) FlightInfo(ctx context.Context, logID int64) (*models.FlightInfo, error) {
	return s.store.FlightInfo(ctx, logID)
}

func (s *Service) EventLog(ctx context.Context, logID int64) ([]models.EventLogLine, error) {
	return s.store.EventLog(ctx, logID)
}

// ModelInfo returns a model with its first and last flight, flight count
// and total flight time.
func (s *Service) ModelInfo(ctx context.Context, modelID int64) (*models.ModelInfo, error) {
	info, err := s.store.Model(ctx, modelID)
	if err != nil {
		return nil, err
	}
	cycles, err := s.store.Cycles(ctx, models.CycleFilter{ModelID: modelID})
	if err != nil {
		return nil, fmt.Errorf("model %d cycles: %w", modelID, err)
	}
	summary := Summarize(cycles)
	if n := len(summary.Data); n > 0 {
		first, last := summary.Data[0].Date, summary.Data[n-1].Date
		info.FirstCycle, info.LastCycle = &first, &last
		info.LastFlown = humanize.Time(last)
	}
	info.Cycles = summary.Totals.Cycles
	info.FlightTime = summary.Totals.Duration
	return info, nil
}

func (s *Service) SetModelInfo(ctx context.Context, modelID int64, info string) error {
	return s.store.SetModelInfo(ctx, modelID, info)
}

func (s *Service) SetModelImage(ctx context.Context, modelID int64, image []byte) error {
	return s.store.SetModelImage(ctx, modelID, image)
}

// Telemetry returns the aligned telemetry and GPS view of one flight.
func (s *Service) Telemetry(ctx context.Context, logID int64) (models.TelemetryView, error) {
	telemetry, err := s.store.TelemetryLog(ctx, logID)
	if err != nil {
		return models.TelemetryView{}, err
	}
	gps, err := s.store.GpsLog(ctx, logID)
	if err != nil {
		return models.TelemetryView{}, err
	}
	return align.View(telemetry, gps), nil
}

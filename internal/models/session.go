package models

import "time"

// ImportState is the lifecycle state of an import job.
type ImportState string

const (
	ImportPending  ImportState = "pending"
	ImportRunning  ImportState = "running"
	ImportComplete ImportState = "complete"
	ImportAborted  ImportState = "aborted"
)

// ImportStatus is one progress notification of an import run.
type ImportStatus struct {
	Completed bool      `json:"completed"`
	Status    string    `json:"status"`
	Percent   float64   `json:"percent"` // 0-100, never decreases within one run
	Timestamp time.Time `json:"timestamp"`
}

// ImportSummary counts what one import run wrote.
type ImportSummary struct {
	ModelFileSets    int   `json:"modelFileSets"`
	Sessions         int   `json:"sessions"`
	BatteryFileSets  int   `json:"batteryFileSets"`
	Records          int   `json:"records"`
	Matched          int   `json:"matched"`
	Imported         int   `json:"imported"`
	Skipped          int   `json:"skipped"` // already present (batteryid, date)
	EventLines       int   `json:"eventLines"`
	TelemetryLines   int   `json:"telemetryLines"`
	GpsLines         int   `json:"gpsLines"`
	CreatedBatteries int   `json:"createdBatteries"`
	CreatedModels    int   `json:"createdModels"`
	DurationMs       int64 `json:"durationMs"`
}

// ParseError represents an error encountered during parsing.
type ParseError struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

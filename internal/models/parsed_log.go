package models

import "time"

// EventLog is a parsed event log with its session boundaries.
type EventLog struct {
	Model    string         `json:"model"` // device model name from the start marker
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Complete bool           `json:"complete"` // an end marker was seen
	Lines    []EventLogLine `json:"lines"`
}

// FlightSession is one model file set with all of its parsed streams.
type FlightSession struct {
	FileSet   ModelLogFileSet    `json:"fileSet"`
	Event     *EventLog          `json:"event"`
	Telemetry []TelemetryLogLine `json:"telemetry,omitempty"`
	Gps       []GpsLogLine       `json:"gps,omitempty"`
}

// Start returns the session start time.
func (s *FlightSession) Start() time.Time {
	return s.Event.Start
}

// End returns the session end time.
func (s *FlightSession) End() time.Time {
	return s.Event.End
}

// Contains reports whether ts lies within [Start, End].
func (s *FlightSession) Contains(ts time.Time) bool {
	return !ts.Before(s.Event.Start) && !ts.After(s.Event.End)
}

// TimeRange represents a time window.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

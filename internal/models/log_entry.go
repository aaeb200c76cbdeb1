// Package models contains domain types for the flight log importer.
package models

import "time"

// EventLogLine is one line of a flight-controller event log.
type EventLogLine struct {
	Timestamp        time.Time `json:"date"`
	Severity         int       `json:"severity"` // 0 marker/info, 1-4 increasing severity
	Message          string    `json:"message"`
	OriginalFilename string    `json:"originalFilename"`
	Model            string    `json:"model"`
}

// TelemetryLogLine is one sample of the high-rate telemetry log.
type TelemetryLogLine struct {
	Timestamp        time.Time `json:"date"`
	Current          float64   `json:"current"`
	Voltage          float64   `json:"voltage"`
	UsedCapacity     int       `json:"usedCapacity"`
	Headspeed        int       `json:"headspeed"`
	PWM              int       `json:"pwm"`
	Temp             int       `json:"temp"` // 0 when the log carries no temperature column
	OriginalFilename string    `json:"originalFilename"`
	Model            string    `json:"model"`
}

// GpsLogLine is one sample of the low-rate GPS log.
type GpsLogLine struct {
	Timestamp        time.Time `json:"date"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	Height           int       `json:"height"`
	Speed            int       `json:"speed"`
	OriginalFilename string    `json:"originalFilename"`
	Model            string    `json:"model"`
}

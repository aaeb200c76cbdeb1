package models

import "time"

// ChargeCycleRecord is one charger-recorded battery use.
type ChargeCycleRecord struct {
	Timestamp   time.Time      `json:"date"`
	BatteryName string         `json:"batteryName"`
	BatteryID   int64          `json:"batteryId"`
	ModelName   string         `json:"modelName"`
	ModelID     int64          `json:"modelId"`
	Duration    int            `json:"duration"` // seconds
	Capacity    int            `json:"capacity"` // mAh
	Used        int            `json:"used"`     // mAh
	MinVoltage  float64        `json:"minVoltage"`
	MaxAmpere   float64        `json:"maxAmpere"`
	IdleVoltage float64        `json:"idleVoltage"`
	Session     *FlightSession `json:"-"`
}

// Matched reports whether the record was paired with a flight session.
func (r *ChargeCycleRecord) Matched() bool {
	return r.Session != nil
}

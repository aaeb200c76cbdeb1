package models

import "time"

// BatterySummary is a battery with its counted cycles in a date range.
type BatterySummary struct {
	BatteryID int64  `json:"batteryId"`
	Name      string `json:"name"`
	Cycles    int    `json:"cycles"`
}

// ModelSummary is a model with its counted cycles in a date range.
type ModelSummary struct {
	ModelID int64      `json:"modelId"`
	Name    string     `json:"name"`
	Type    DeviceType `json:"type,omitempty"`
	Thumb   []byte     `json:"thumb,omitempty"`
	ThumbID string     `json:"thumbAsset,omitempty"` // default asset when no thumb is stored
	Info    string     `json:"info,omitempty"`
	Cycles  int        `json:"cycles"`
}

// Gear bundles batteries and models for one date range.
type Gear struct {
	Batteries []BatterySummary `json:"batteries"`
	Models    []ModelSummary   `json:"models"`
}

// CycleFilter narrows a cycle query. Zero values do not filter.
type CycleFilter struct {
	ModelID   int64
	BatteryID int64
	From      string // inclusive, "YYYY-MM-DD"
	To        string // exclusive
	AllCycles bool   // include cycles using a quarter of capacity or less
}

// Cycle is one stored charge cycle with detail flags.
type Cycle struct {
	LogID              int64     `json:"logId"`
	Date               time.Time `json:"date"`
	Battery            string    `json:"battery"`
	ModelID            int64     `json:"modelId"`
	Model              string    `json:"model"`
	Duration           int       `json:"durationSec"`
	Capacity           int       `json:"capacity"`
	Used               int       `json:"used"`
	MinVoltage         float64   `json:"minv"`
	MaxAmpere          float64   `json:"maxa"`
	IdleVoltage        float64   `json:"idlev"`
	Session            int       `json:"session"`
	HaveVBarLog        bool      `json:"haveVBarLog"`
	HaveUILog          bool      `json:"haveUILog"`
	HaveGPSLog         bool      `json:"haveGPSLog"`
	HaveVBarLogProblem bool      `json:"haveVBarLogProblem"`
}

// CycleTotals aggregates a cycle listing.
type CycleTotals struct {
	Cycles   int    `json:"cycles"`
	Used     string `json:"used"`     // Ah, two decimals
	Duration string `json:"duration"` // HH:MM:SS
	Sessions int    `json:"sessions"`
}

// CycleReport is a cycle listing with totals.
type CycleReport struct {
	Data   []Cycle     `json:"data"`
	Totals CycleTotals `json:"totals"`
}

// WeekBucket counts cycles per group in one ISO week.
type WeekBucket struct {
	Week   string         `json:"week"` // "YYYY - WW"
	Groups map[string]int `json:"groups"`
}

// Season counts cycles in one year.
type Season struct {
	Year  string `json:"year"`
	Count int    `json:"count"`
}

// FlightInfo is the basic identity of one stored flight.
type FlightInfo struct {
	LogID   int64     `json:"logId"`
	Model   string    `json:"model"`
	Battery string    `json:"battery"`
	Date    time.Time `json:"date"`
}

// ModelInfo is a model's detail record with flight statistics.
type ModelInfo struct {
	ModelID    int64      `json:"modelId"`
	Name       string     `json:"name"`
	Type       DeviceType `json:"type,omitempty"`
	Info       string     `json:"info"`
	Image      []byte     `json:"image,omitempty"`
	FirstCycle *time.Time `json:"firstCycle"`
	LastCycle  *time.Time `json:"lastCycle"`
	LastFlown  string     `json:"lastFlown,omitempty"` // e.g. "3 days ago"
	Cycles     int        `json:"cycles"`
	FlightTime string     `json:"flightTime"`
}

// AlignedSample is one telemetry sample enriched with the nearest GPS fix.
type AlignedSample struct {
	Sec          float64 `json:"sec" msgpack:"sec"`
	Model        string  `json:"model" msgpack:"model"`
	Current      float64 `json:"current" msgpack:"current"`
	Voltage      float64 `json:"voltage" msgpack:"voltage"`
	UsedCapacity int     `json:"usedCapacity" msgpack:"usedCapacity"`
	Headspeed    int     `json:"headspeed" msgpack:"headspeed"`
	PWM          int     `json:"pwm" msgpack:"pwm"`
	Temp         int     `json:"temp" msgpack:"temp"`
	Height       int     `json:"height" msgpack:"height"`
	Speed        int     `json:"speed" msgpack:"speed"`
	Latitude     float64 `json:"latitude" msgpack:"latitude"`
	Longitude    float64 `json:"longitude" msgpack:"longitude"`
}

// TelemetryView is the aligned telemetry of one flight.
type TelemetryView struct {
	Start time.Time       `json:"start" msgpack:"start"`
	Data  []AlignedSample `json:"data" msgpack:"data"`
}

// Package align merges a flight's telemetry and GPS streams onto one
// elapsed-time axis.
package align

import (
	"math"
	"time"

	"github.com/vbc-logbook/backend/internal/models"
)

// TelemetryTrack is a clipped telemetry stream. Sample offsets are spread
// evenly over the clipped duration.
type TelemetryTrack struct {
	Start    time.Time
	Duration float64 // seconds
	Samples  []models.AlignedSample
}

// GPSSample is one GPS fix at an offset from its track start.
type GPSSample struct {
	Sec       float64
	Latitude  float64
	Longitude float64
	Height    int
	Speed     int
}

// GPSTrack is a GPS stream with evenly spread offsets.
type GPSTrack struct {
	Start   time.Time
	Samples []GPSSample
}

// Telemetry clips rows to the span between the first and last sample with a
// spinning head, inclusive. Rows that never spin are kept whole.
func Telemetry(rows []models.TelemetryLogLine) TelemetryTrack {
	if len(rows) == 0 {
		return TelemetryTrack{}
	}

	first, last := -1, -1
	for i, r := range rows {
		if r.Headspeed != 0 {
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	if first == -1 {
		first, last = 0, len(rows)-1
	}
	clipped := rows[first : last+1]

	track := TelemetryTrack{
		Start:    clipped[0].Timestamp,
		Duration: clipped[len(clipped)-1].Timestamp.Sub(clipped[0].Timestamp).Seconds(),
		Samples:  make([]models.AlignedSample, len(clipped)),
	}
	for i, r := range clipped {
		track.Samples[i] = models.AlignedSample{
			Sec:          spread(i, len(clipped), track.Duration),
			Model:        r.Model,
			Current:      r.Current,
			Voltage:      r.Voltage,
			UsedCapacity: r.UsedCapacity,
			Headspeed:    r.Headspeed,
			PWM:          r.PWM,
			Temp:         r.Temp,
		}
	}
	return track
}

// GPS converts rows into a track. It reports false for an empty stream.
func GPS(rows []models.GpsLogLine) (GPSTrack, bool) {
	if len(rows) == 0 {
		return GPSTrack{}, false
	}
	start := rows[0].Timestamp
	duration := rows[len(rows)-1].Timestamp.Sub(start).Seconds()

	track := GPSTrack{Start: start, Samples: make([]GPSSample, len(rows))}
	for i, r := range rows {
		track.Samples[i] = GPSSample{
			Sec:       spread(i, len(rows), duration),
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			Height:    r.Height,
			Speed:     r.Speed,
		}
	}
	return track, true
}

// Merge fills each telemetry sample with the GPS fix nearest in absolute
// time. Ties keep the earlier fix. An empty GPS track is replaced by one zero
// fix at the telemetry start.
func Merge(tel TelemetryTrack, gps GPSTrack) models.TelemetryView {
	if len(gps.Samples) == 0 {
		gps = GPSTrack{Start: tel.Start, Samples: []GPSSample{{}}}
	}
	// offset of the GPS track start relative to the telemetry start
	base := gps.Start.Sub(tel.Start).Seconds()

	out := make([]models.AlignedSample, len(tel.Samples))
	for i, s := range tel.Samples {
		nearest := 0
		best := math.Inf(1)
		for j, g := range gps.Samples {
			if d := math.Abs(s.Sec - (base + g.Sec)); d < best {
				best = d
				nearest = j
			}
		}
		g := gps.Samples[nearest]
		s.Height = g.Height
		s.Speed = g.Speed
		s.Latitude = g.Latitude
		s.Longitude = g.Longitude
		out[i] = s
	}
	return models.TelemetryView{Start: tel.Start, Data: out}
}

// View aligns stored telemetry and GPS rows of one flight.
func View(telemetry []models.TelemetryLogLine, gps []models.GpsLogLine) models.TelemetryView {
	track, _ := GPS(gps)
	return Merge(Telemetry(telemetry), track)
}

func spread(i, count int, duration float64) float64 {
	return float64(i) / float64(count) * duration
}

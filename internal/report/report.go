// Package report turns stored cycles into the roll-ups shown by the logbook.
package report

import (
	"fmt"
	"time"

	"github.com/vbc-logbook/backend/internal/models"
)

// SessionGap separates two field sessions.
const SessionGap = 3 * time.Hour

// Group keys accepted by Weeks.
const (
	GroupByModel   = "model"
	GroupByBattery = "battery"
)

// Summarize numbers field sessions and totals a date-ordered cycle listing.
// Cycles further apart than SessionGap start a new session.
func Summarize(cycles []models.Cycle) models.CycleReport {
	report := models.CycleReport{Data: make([]models.Cycle, 0, len(cycles))}

	var (
		last          time.Time
		session       int
		used          int
		durationTotal int
	)
	for i, c := range cycles {
		if i == 0 || c.Date.Sub(last) > SessionGap {
			session++
		}
		last = c.Date
		c.Session = session
		used += c.Used
		durationTotal += c.Duration
		report.Data = append(report.Data, c)
	}

	report.Totals = models.CycleTotals{
		Cycles:   len(cycles),
		Used:     fmt.Sprintf("%.2f", float64(used)/1000),
		Duration: FormatDuration(durationTotal),
		Sessions: session,
	}
	return report
}

// FormatDuration renders seconds as HH:MM:SS.
func FormatDuration(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}

// WeekKey is the "YYYY - WW" label of the ISO week containing t.
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d - %02d", year, week)
}

// Weeks counts cycles per ISO week and group. Every week from the first to
// the last ISO year is present, empty weeks included.
func Weeks(cycles []models.Cycle, groupBy string) []models.WeekBucket {
	if len(cycles) == 0 {
		return []models.WeekBucket{}
	}

	counts := make(map[string]map[string]int)
	firstYear, lastYear := 0, 0
	for i, c := range cycles {
		year, _ := c.Date.ISOWeek()
		if i == 0 || year < firstYear {
			firstYear = year
		}
		if i == 0 || year > lastYear {
			lastYear = year
		}

		key := WeekKey(c.Date)
		if counts[key] == nil {
			counts[key] = make(map[string]int)
		}
		group := c.Battery
		if groupBy == GroupByModel {
			group = c.Model
		}
		counts[key][group]++
	}

	out := make([]models.WeekBucket, 0, (lastYear-firstYear+1)*53)
	for year := firstYear; year <= lastYear; year++ {
		for week := 1; week <= isoWeeksIn(year); week++ {
			key := fmt.Sprintf("%d - %02d", year, week)
			groups := counts[key]
			if groups == nil {
				groups = map[string]int{}
			}
			out = append(out, models.WeekBucket{Week: key, Groups: groups})
		}
	}
	return out
}

// isoWeeksIn returns 52 or 53. Dec 28 always falls in the last ISO week.
func isoWeeksIn(year int) int {
	_, week := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return week
}

// DefaultThumb names the stock picture for a model without its own thumb.
func DefaultThumb(t models.DeviceType) string {
	switch t {
	case models.DeviceAirplane, models.DeviceVBasic:
		return "airplane.png"
	case models.DeviceMultirotor:
		return "multirotor.png"
	default:
		return "helicopter.png"
	}
}

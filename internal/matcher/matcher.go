// Package matcher pairs charge cycles with the flight session that was
// running when the charger recorded them.
package matcher

import (
	"time"

	"github.com/vbc-logbook/backend/internal/models"
	"github.com/vbc-logbook/backend/internal/parser"
)

// Matcher holds the parsed sessions grouped by model name, each group in
// discovery order.
type Matcher struct {
	byModel map[string][]*models.FlightSession
}

// New indexes sessions by the model name of their event log. Sessions
// without a parsed event log are ignored.
func New(sessions []*models.FlightSession) *Matcher {
	m := &Matcher{byModel: make(map[string][]*models.FlightSession)}
	for _, s := range sessions {
		if s == nil || s.Event == nil {
			continue
		}
		m.byModel[s.Event.Model] = append(m.byModel[s.Event.Model], s)
	}
	return m
}

// Match returns the first session of modelName whose [start, end] contains ts.
func (m *Matcher) Match(modelName string, ts time.Time) (*models.FlightSession, bool) {
	for _, s := range m.byModel[modelName] {
		if s.Contains(ts) {
			return s, true
		}
	}
	return nil, false
}

// Sessions returns the number of indexed sessions for modelName.
func (m *Matcher) Sessions(modelName string) int {
	return len(m.byModel[modelName])
}

// MatchAll attaches sessions to records in place and returns how many matched.
func (m *Matcher) MatchAll(records []models.ChargeCycleRecord) int {
	matched := 0
	for i := range records {
		if s, ok := m.Match(records[i].ModelName, records[i].Timestamp); ok {
			records[i].Session = s
			matched++
		}
	}
	return matched
}

var defaultRegistry = parser.NewRegistry()

// DeviceType derives the device type of a session from its event log filename.
func DeviceType(s *models.FlightSession) (models.DeviceType, bool) {
	if s == nil {
		return "", false
	}
	return defaultRegistry.DeviceTypeFor(s.FileSet.EventLog)
}

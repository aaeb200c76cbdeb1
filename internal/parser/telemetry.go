package parser

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vbc-logbook/backend/internal/models"
)

// telemetryColumn is one header column with the names it has carried across
// firmware and vendor versions.
type telemetryColumn struct {
	aliases  []string
	required bool
}

var (
	colDate      = telemetryColumn{aliases: []string{"Date", "Time"}, required: true}
	colCurrent   = telemetryColumn{aliases: []string{"I(A)", "Current(A)"}, required: true}
	colVoltage   = telemetryColumn{aliases: []string{"U(V)", "Voltage(V)"}, required: true}
	colCapacity  = telemetryColumn{aliases: []string{"(Q)mAh", "Capacity(mAh)"}, required: true}
	colHeadspeed = telemetryColumn{aliases: []string{"Headspeed(rpm)", "RPM(rpm)"}, required: true}
	colPWM       = telemetryColumn{aliases: []string{"PWM(%)", "Throttle(%)"}, required: true}
	colTemp      = telemetryColumn{aliases: []string{"Temp(C)", "Temp(°C)"}}
)

// telemetryLayout maps telemetry fields to header positions. Temp is -1 when
// the log has no temperature column.
type telemetryLayout struct {
	date, current, voltage, capacity, headspeed, pwm, temp int
}

func (l telemetryLayout) minColumns() int {
	n := 0
	for _, i := range []int{l.date, l.current, l.voltage, l.capacity, l.headspeed, l.pwm} {
		if i+1 > n {
			n = i + 1
		}
	}
	return n
}

// TelemetryParser handles the semicolon separated telemetry CSV written
// next to an event log.
type TelemetryParser struct{}

func NewTelemetryParser() *TelemetryParser {
	return &TelemetryParser{}
}

func (p *TelemetryParser) Name() string {
	return "telemetry_csv"
}

// Parse reads a telemetry log. The running date starts at sessionStart's
// calendar day. A nil slice with a nil error means the file carries no
// usable telemetry.
func (p *TelemetryParser) Parse(filePath string, sessionStart time.Time) ([]models.TelemetryLogLine, []*models.ParseError, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	return p.ParseReader(file, filepath.Base(filePath), sessionStart)
}

func (p *TelemetryParser) ParseReader(r io.Reader, filename string, sessionStart time.Time) ([]models.TelemetryLogLine, []*models.ParseError, error) {
	scanner := NewLineScanner(r)
	if !scanner.Scan() {
		return nil, nil, scanner.Err()
	}
	layout, ok := mapTelemetryHeader(strings.Split(scanner.Text(), ";"))
	if !ok {
		return nil, nil, nil
	}
	minCols := layout.minColumns()

	lines := make([]models.TelemetryLogLine, 0, 1024)
	errors := make([]*models.ParseError, 0)
	clock := newDayClock(sessionStart)
	clock.seed(sessionStart.Hour())

	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		cols := strings.Split(line, ";")
		if len(cols) < minCols {
			errors = append(errors, newParseError(lineNum, line, "too few columns"))
			continue
		}
		hour, minute, second, ok := parseClock(cols[layout.date])
		if !ok {
			errors = append(errors, newParseError(lineNum, line, "invalid time"))
			continue
		}

		entry := models.TelemetryLogLine{
			Timestamp:        clock.at(hour, minute, second),
			OriginalFilename: filename,
		}
		var err error
		var fieldErr string
		if entry.Current, err = ParseFloat(cols[layout.current]); err != nil {
			fieldErr = "invalid current"
		}
		if entry.Voltage, err = ParseFloat(cols[layout.voltage]); err != nil {
			fieldErr = "invalid voltage"
		}
		if entry.UsedCapacity, err = ParseInt(cols[layout.capacity]); err != nil {
			fieldErr = "invalid used capacity"
		}
		if entry.Headspeed, err = ParseInt(cols[layout.headspeed]); err != nil {
			fieldErr = "invalid headspeed"
		}
		if entry.PWM, err = ParseInt(cols[layout.pwm]); err != nil {
			fieldErr = "invalid pwm"
		}
		if layout.temp >= 0 && layout.temp < len(cols) {
			if entry.Temp, err = ParseInt(cols[layout.temp]); err != nil {
				fieldErr = "invalid temperature"
			}
		}
		if fieldErr != "" {
			// keep the sample, unreadable fields stay zero
			errors = append(errors, newParseError(lineNum, line, fieldErr))
		}

		lines = append(lines, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	if len(lines) == 0 {
		return nil, errors, nil
	}

	return lines, errors, nil
}

func mapTelemetryHeader(header []string) (telemetryLayout, bool) {
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	layout := telemetryLayout{}
	targets := []struct {
		col telemetryColumn
		dst *int
	}{
		{colDate, &layout.date},
		{colCurrent, &layout.current},
		{colVoltage, &layout.voltage},
		{colCapacity, &layout.capacity},
		{colHeadspeed, &layout.headspeed},
		{colPWM, &layout.pwm},
		{colTemp, &layout.temp},
	}
	for _, t := range targets {
		*t.dst = indexOfFirst(header, t.col.aliases)
		if *t.dst == -1 && t.col.required {
			return layout, false
		}
	}
	return layout, true
}

// indexOfFirst returns the header position of the first alias present.
func indexOfFirst(header []string, aliases []string) int {
	for _, alias := range aliases {
		for i, h := range header {
			if h == alias {
				return i
			}
		}
	}
	return -1
}

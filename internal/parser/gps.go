package parser

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vbc-logbook/backend/internal/models"
)

// gpsMinColumns is the fixed time;lat;lon;height;speed layout.
const gpsMinColumns = 5

// GPSParser handles the GPS CSV. Its header names do not match the data, so
// columns are read by position.
type GPSParser struct{}

func NewGPSParser() *GPSParser {
	return &GPSParser{}
}

func (p *GPSParser) Name() string {
	return "gps_csv"
}

// Parse reads a GPS log. A nil slice with a nil error means no usable GPS data.
func (p *GPSParser) Parse(filePath string, sessionStart time.Time) ([]models.GpsLogLine, []*models.ParseError, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	return p.ParseReader(file, filepath.Base(filePath), sessionStart)
}

func (p *GPSParser) ParseReader(r io.Reader, filename string, sessionStart time.Time) ([]models.GpsLogLine, []*models.ParseError, error) {
	scanner := NewLineScanner(r)
	// header
	if !scanner.Scan() {
		return nil, nil, scanner.Err()
	}

	lines := make([]models.GpsLogLine, 0, 256)
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
		if len(cols) < gpsMinColumns {
			errors = append(errors, newParseError(lineNum, line, "too few columns"))
			continue
		}
		hour, minute, second, ok := parseClock(cols[0])
		if !ok {
			errors = append(errors, newParseError(lineNum, line, "invalid time"))
			continue
		}

		entry := models.GpsLogLine{
			Timestamp:        clock.at(hour, minute, second),
			OriginalFilename: filename,
		}
		var err error
		var fieldErr string
		if entry.Latitude, err = ParseFloat(cols[1]); err != nil {
			fieldErr = "invalid latitude"
		}
		if entry.Longitude, err = ParseFloat(cols[2]); err != nil {
			fieldErr = "invalid longitude"
		}
		if entry.Height, err = ParseInt(cols[3]); err != nil {
			fieldErr = "invalid height"
		}
		if entry.Speed, err = ParseInt(cols[4]); err != nil {
			fieldErr = "invalid speed"
		}
		if fieldErr != "" {
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

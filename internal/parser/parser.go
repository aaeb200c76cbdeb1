package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vbc-logbook/backend/internal/models"
)

// Common utilities for parsing

// TimestampLayout is the layout stored in every log table.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	// clockRegex extracts a time of day from a CSV time column.
	clockRegex = regexp.MustCompile(`(\d\d):(\d\d):(\d\d)`)
)

// parseClock extracts hour, minute and second from s.
func parseClock(s string) (int, int, int, bool) {
	m := clockRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, 0, false
	}
	return atoi2(m[1]), atoi2(m[2]), atoi2(m[3]), true
}

// atoi2 converts a two digit string. Callers only pass regex-validated digits.
func atoi2(s string) int {
	return int(s[0]-'0')*10 + int(s[1]-'0')
}

// civil builds a wall-clock timestamp. Device clocks carry no zone, so all
// log times are kept in UTC.
func civil(year, month, day, hour, minute, second int) (time.Time, bool) {
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day ||
		t.Hour() != hour || t.Minute() != minute || t.Second() != second {
		return time.Time{}, false
	}
	return t, true
}

// ParseFloat parses a numeric CSV field, accepting a decimal comma.
func ParseFloat(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	s = strings.Replace(s, ",", ".", 1)
	return strconv.ParseFloat(s, 64)
}

// ParseInt parses an integer CSV field. Decimal values are truncated.
func ParseInt(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := ParseFloat(s)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses a stored TimestampLayout value.
func ParseTimestamp(s string) (time.Time, error) {
	if len(s) > len(TimestampLayout) {
		// some drivers hand back "YYYY-MM-DDTHH:MM:SSZ"
		s = strings.Replace(s[:19], "T", " ", 1)
	}
	return time.ParseInLocation(TimestampLayout, s, time.UTC)
}

func newParseError(lineNum int, content, reason string) *models.ParseError {
	return &models.ParseError{Line: lineNum, Content: content, Reason: reason}
}

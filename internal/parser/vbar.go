package parser

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vbc-logbook/backend/internal/models"
)

// VBarParser handles flight-controller event logs.
// Format:
//
//	VBar Start -- <model> -- DD.MM.YYYY -- HH:MM:SS
//	HH:MM:SS;<severity>;<text>
//	VBar Logfile End ... DD.MM.YYYY -- HH:MM:SS
type VBarParser struct {
	startRegex *regexp.Regexp
	endRegex   *regexp.Regexp
	lineRegex  *regexp.Regexp
}

func NewVBarParser() *VBarParser {
	return &VBarParser{
		startRegex: regexp.MustCompile(`(?:VBar|VCopter|VPlane|VBasic) Start -- (.*?) -- (\d\d)\.(\d\d)\.(\d\d\d\d) -- (\d\d):(\d\d):(\d\d)`),
		endRegex:   regexp.MustCompile(`(?:VBar|VCopter|VPlane|VBasic) Logfile End.*?(\d\d)\.(\d\d)\.(\d\d\d\d) -- (\d\d):(\d\d):(\d\d)`),
		lineRegex:  regexp.MustCompile(`(\d\d):(\d\d):(\d\d);(\d);`),
	}
}

func (p *VBarParser) Name() string {
	return "vbar_event"
}

// Parse reads one event log. A nil log with a nil error means the file has
// no start marker and holds no session.
func (p *VBarParser) Parse(filePath string) (*models.EventLog, []*models.ParseError, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	return p.ParseReader(file, filepath.Base(filePath))
}

// ParseReader parses event log content; filename is recorded on every line.
func (p *VBarParser) ParseReader(r io.Reader, filename string) (*models.EventLog, []*models.ParseError, error) {
	errors := make([]*models.ParseError, 0)
	var log *models.EventLog
	var clock *dayClock

	scanner := NewLineScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if log == nil {
			if strings.TrimSpace(line) == "" {
				continue
			}
			m := p.startRegex.FindStringSubmatch(line)
			if m == nil {
				// first real line is not a start marker
				return nil, errors, nil
			}
			start, ok := markerTime(m[4], m[3], m[2], m[5], m[6], m[7])
			if !ok {
				return nil, append(errors, newParseError(lineNum, line, "invalid start marker date")), nil
			}
			log = &models.EventLog{
				Model: strings.TrimSpace(m[1]),
				Start: start,
				End:   start,
				Lines: make([]models.EventLogLine, 0, 256),
			}
			clock = newDayClock(start)
			clock.seed(start.Hour())
			log.Lines = append(log.Lines, models.EventLogLine{
				Timestamp:        start,
				Severity:         0,
				Message:          line,
				OriginalFilename: filename,
				Model:            log.Model,
			})
			continue
		}

		if m := p.endRegex.FindStringSubmatch(line); m != nil {
			end, ok := markerTime(m[3], m[2], m[1], m[4], m[5], m[6])
			if !ok {
				errors = append(errors, newParseError(lineNum, line, "invalid end marker date"))
				continue
			}
			log.End = end
			log.Complete = true
			log.Lines = append(log.Lines, models.EventLogLine{
				Timestamp:        end,
				Severity:         0,
				Message:          line,
				OriginalFilename: filename,
				Model:            log.Model,
			})
			break
		}

		if p.startRegex.MatchString(line) {
			errors = append(errors, newParseError(lineNum, line, "repeated start marker"))
			continue
		}

		m := p.lineRegex.FindStringSubmatch(line)
		if m == nil {
			if strings.TrimSpace(line) != "" {
				errors = append(errors, newParseError(lineNum, line, "line does not match event log format"))
			}
			continue
		}
		hour, minute, second := atoi2(m[1]), atoi2(m[2]), atoi2(m[3])
		if hour > 23 || minute > 59 || second > 59 {
			errors = append(errors, newParseError(lineNum, line, "invalid time of day"))
			continue
		}
		severity, _ := strconv.Atoi(m[4])
		ts := clock.at(hour, minute, second)

		log.Lines = append(log.Lines, models.EventLogLine{
			Timestamp:        ts,
			Severity:         severity,
			Message:          line,
			OriginalFilename: filename,
			Model:            log.Model,
		})
		log.End = ts
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	return log, errors, nil
}

func markerTime(year, month, day, hour, minute, second string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	return civil(y, atoi2(month), atoi2(day), atoi2(hour), atoi2(minute), atoi2(second))
}

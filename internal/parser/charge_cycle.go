package parser

import (
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/vbc-logbook/backend/internal/models"
)

// ClockNotSetYear is the first year a charger clock can plausibly show.
// Earlier dates mean the charger lost its clock.
const ClockNotSetYear = 2013

// chargeCycleMinColumns is date;capacity;used;duration;minV;maxA;idleV;model.
const chargeCycleMinColumns = 8

// ChargeCycleParser handles a battery's cumulative charger log.csv.
type ChargeCycleParser struct {
	dateRegex *regexp.Regexp
}

func NewChargeCycleParser() *ChargeCycleParser {
	return &ChargeCycleParser{
		dateRegex: regexp.MustCompile(`(\d\d)\.(\d\d)\.(\d\d\d\d) (\d\d):(\d\d):(\d\d)`),
	}
}

func (p *ChargeCycleParser) Name() string {
	return "charge_cycle_csv"
}

// Parse reads every cycle in a charger log. Battery and model ids are left
// to the caller.
func (p *ChargeCycleParser) Parse(filePath string) ([]models.ChargeCycleRecord, []*models.ParseError, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	return p.ParseReader(file)
}

func (p *ChargeCycleParser) ParseReader(r io.Reader) ([]models.ChargeCycleRecord, []*models.ParseError, error) {
	records := make([]models.ChargeCycleRecord, 0, 128)
	errors := make([]*models.ParseError, 0)

	scanner := NewLineScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		cols := strings.Split(line, ";")
		if len(cols) < chargeCycleMinColumns {
			if strings.TrimSpace(line) != "" {
				errors = append(errors, newParseError(lineNum, line, "too few columns"))
			}
			continue
		}

		rec, reason := p.parseRow(cols)
		if reason != "" {
			errors = append(errors, newParseError(lineNum, line, reason))
			continue
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	return records, errors, nil
}

func (p *ChargeCycleParser) parseRow(cols []string) (models.ChargeCycleRecord, string) {
	var rec models.ChargeCycleRecord

	m := p.dateRegex.FindStringSubmatch(cols[0])
	if m == nil {
		return rec, "invalid date"
	}
	year, _ := strconv.Atoi(m[3])
	if year < ClockNotSetYear {
		return rec, "charger clock not set"
	}
	ts, ok := civil(year, atoi2(m[2]), atoi2(m[1]), atoi2(m[4]), atoi2(m[5]), atoi2(m[6]))
	if !ok {
		return rec, "invalid date"
	}
	rec.Timestamp = ts

	var err error
	if rec.Capacity, err = ParseInt(cols[1]); err != nil {
		return rec, "invalid capacity"
	}
	if rec.Used, err = ParseInt(cols[2]); err != nil {
		return rec, "invalid used"
	}
	if rec.Duration, err = ParseInt(cols[3]); err != nil {
		return rec, "invalid duration"
	}
	if rec.MinVoltage, err = ParseFloat(cols[4]); err != nil {
		return rec, "invalid min voltage"
	}
	if rec.MaxAmpere, err = ParseFloat(cols[5]); err != nil {
		return rec, "invalid max ampere"
	}
	if strings.TrimSpace(cols[6]) != "" {
		if rec.IdleVoltage, err = ParseFloat(cols[6]); err != nil {
			return rec, "invalid idle voltage"
		}
	}
	rec.ModelName = strings.TrimSpace(cols[7])
	if rec.ModelName == "" {
		return rec, "missing model name"
	}

	return rec, ""
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vbc-logbook/backend/internal/models"
	"github.com/vbc-logbook/backend/internal/parser"
)

// Range bounds used when a caller leaves from or to empty.
const (
	MinDate = "1970-01-01"
	MaxDate = "9999-01-01"
)

// A cycle counts as a flight when more than a quarter of the capacity was used.
const flightPredicate = "used * 4 > capacity"

func dateRange(from, to string) (string, string) {
	if from == "" {
		from = MinDate
	}
	if to == "" {
		to = MaxDate
	}
	return from, to
}

// Batteries returns batteries with their flight counts in [from, to).
func (s *Store) Batteries(ctx context.Context, from, to string) (out []models.BatterySummary, err error) {
	from, to = dateRange(from, to)
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT b.id, b.name, c.cycles
		FROM battery b
		JOIN (SELECT batteryid, COUNT(*) AS cycles FROM batterylog
		      WHERE date >= ? AND date < ? AND `+flightPredicate+` GROUP BY batteryid) c
		  ON c.batteryid = b.id
		ORDER BY b.name`), from, to)
	if err != nil {
		return nil, fmt.Errorf("querying batteries: %w", err)
	}
	defer closeWithError(rows, &err)

	out = make([]models.BatterySummary, 0)
	for rows.Next() {
		var b models.BatterySummary
		var name sql.NullString
		if err = rows.Scan(&b.BatteryID, &name, &b.Cycles); err != nil {
			return nil, err
		}
		b.Name = name.String
		out = append(out, b)
	}
	return out, rows.Err()
}

// Models returns models with their flight counts in [from, to).
func (s *Store) Models(ctx context.Context, from, to string) (out []models.ModelSummary, err error) {
	from, to = dateRange(from, to)
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT m.id, m.name, m.type, m.thumb, m.info, c.cycles
		FROM model m
		JOIN (SELECT modelid, COUNT(*) AS cycles FROM batterylog
		      WHERE date >= ? AND date < ? AND `+flightPredicate+` GROUP BY modelid) c
		  ON c.modelid = m.id
		ORDER BY m.name`), from, to)
	if err != nil {
		return nil, fmt.Errorf("querying models: %w", err)
	}
	defer closeWithError(rows, &err)

	out = make([]models.ModelSummary, 0)
	for rows.Next() {
		var (
			m                      models.ModelSummary
			name, deviceType, info sql.NullString
		)
		if err = rows.Scan(&m.ModelID, &name, &deviceType, &m.Thumb, &info, &m.Cycles); err != nil {
			return nil, err
		}
		m.Name = name.String
		m.Type = models.DeviceType(deviceType.String)
		m.Info = info.String
		out = append(out, m)
	}
	return out, rows.Err()
}

// Cycles lists stored cycles ordered by date. Cycles without a model row are
// left out.
func (s *Store) Cycles(ctx context.Context, f models.CycleFilter) (out []models.Cycle, err error) {
	var (
		where []string
		args  []any
	)
	if !f.AllCycles {
		where = append(where, "l.used * 4 > l.capacity")
	}
	if f.BatteryID != 0 {
		where = append(where, "l.batteryid = ?")
		args = append(args, f.BatteryID)
	}
	if f.ModelID != 0 {
		where = append(where, "l.modelid = ?")
		args = append(args, f.ModelID)
	}
	if f.From != "" {
		where = append(where, "l.date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		where = append(where, "l.date < ?")
		args = append(args, f.To)
	}

	query := `
		SELECT l.id, l.date, b.name, m.id, m.name, l.duration, l.capacity, l.used,
		       l.minvoltage, l.maxampere, l.uid,
		       CASE WHEN (SELECT COUNT(*) FROM vbarlog v WHERE v.logid = l.id) > 1 THEN 1 ELSE 0 END,
		       CASE WHEN (SELECT COUNT(*) FROM uilog u WHERE u.logid = l.id) > 1 THEN 1 ELSE 0 END,
		       CASE WHEN (SELECT COUNT(*) FROM gpslog g WHERE g.logid = l.id) > 1 THEN 1 ELSE 0 END,
		       CASE WHEN (SELECT COUNT(*) FROM vbarlog v WHERE v.logid = l.id AND v.severity = 4
		                  AND v.message NOT LIKE '%Extreme Vibration%'
		                  AND v.message NOT LIKE '%Gefaehrliche Vibrationen%') > 1 THEN 1 ELSE 0 END
		FROM batterylog l
		LEFT JOIN battery b ON b.id = l.batteryid
		JOIN model m ON m.id = l.modelid`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY l.date, l.id"

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying cycles: %w", err)
	}
	defer closeWithError(rows, &err)

	out = make([]models.Cycle, 0)
	for rows.Next() {
		var (
			c                       models.Cycle
			date                    string
			battery, model          sql.NullString
			minV, maxA, idleV       sql.NullFloat64
			vbar, ui, gps, problems int
		)
		if err = rows.Scan(&c.LogID, &date, &battery, &c.ModelID, &model, &c.Duration, &c.Capacity, &c.Used,
			&minV, &maxA, &idleV, &vbar, &ui, &gps, &problems); err != nil {
			return nil, err
		}
		if c.Date, err = parser.ParseTimestamp(date); err != nil {
			return nil, fmt.Errorf("cycle %d: %w", c.LogID, err)
		}
		c.Battery = battery.String
		c.Model = model.String
		c.MinVoltage, c.MaxAmpere, c.IdleVoltage = minV.Float64, maxA.Float64, idleV.Float64
		c.HaveVBarLog, c.HaveUILog, c.HaveGPSLog, c.HaveVBarLogProblem = vbar == 1, ui == 1, gps == 1, problems == 1
		out = append(out, c)
	}
	return out, rows.Err()
}

// Seasons counts flights per year.
func (s *Store) Seasons(ctx context.Context) (out []models.Season, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(date, 1, 4) AS season, COUNT(*) FROM batterylog
		WHERE `+flightPredicate+`
		GROUP BY substr(date, 1, 4)
		ORDER BY season`)
	if err != nil {
		return nil, fmt.Errorf("querying seasons: %w", err)
	}
	defer closeWithError(rows, &err)

	out = make([]models.Season, 0)
	for rows.Next() {
		var season models.Season
		if err = rows.Scan(&season.Year, &season.Count); err != nil {
			return nil, err
		}
		out = append(out, season)
	}
	return out, rows.Err()
}

// FlightInfo returns model, battery and date of one stored cycle.
func (s *Store) FlightInfo(ctx context.Context, logID int64) (*models.FlightInfo, error) {
	var (
		info           = &models.FlightInfo{LogID: logID}
		model, battery sql.NullString
		date           string
	)
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT m.name, b.name, l.date
		FROM batterylog l
		LEFT JOIN battery b ON b.id = l.batteryid
		LEFT JOIN model m ON m.id = l.modelid
		WHERE l.id = ?`), logID).Scan(&model, &battery, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("flight %d: %w", logID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying flight %d: %w", logID, err)
	}
	if info.Date, err = parser.ParseTimestamp(date); err != nil {
		return nil, fmt.Errorf("flight %d: %w", logID, err)
	}
	info.Model, info.Battery = model.String, battery.String
	return info, nil
}

// Model returns the stored fields of one model. Flight statistics are left
// for the caller.
func (s *Store) Model(ctx context.Context, modelID int64) (*models.ModelInfo, error) {
	var (
		info                   = &models.ModelInfo{ModelID: modelID}
		name, deviceType, text sql.NullString
	)
	err := s.db.QueryRowContext(ctx, s.q("SELECT name, type, info, image FROM model WHERE id = ?"), modelID).
		Scan(&name, &deviceType, &text, &info.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("model %d: %w", modelID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying model %d: %w", modelID, err)
	}
	info.Name = name.String
	info.Type = models.DeviceType(deviceType.String)
	info.Info = text.String
	return info, nil
}

// SetModelInfo replaces the free text notes of a model.
func (s *Store) SetModelInfo(ctx context.Context, modelID int64, info string) error {
	return s.updateModel(ctx, "UPDATE model SET info = ? WHERE id = ?", info, modelID)
}

// SetModelImage replaces the model picture. A nil image clears it.
func (s *Store) SetModelImage(ctx context.Context, modelID int64, image []byte) error {
	var value any
	if image != nil {
		value = image
	}
	return s.updateModel(ctx, "UPDATE model SET image = ? WHERE id = ?", value, modelID)
}

func (s *Store) updateModel(ctx context.Context, query string, value any, modelID int64) error {
	res, err := s.db.ExecContext(ctx, s.q(query), value, modelID)
	if err != nil {
		return fmt.Errorf("updating model %d: %w", modelID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("model %d: %w", modelID, ErrNotFound)
	}
	return nil
}

// EventLog returns the stored event lines of one cycle.
func (s *Store) EventLog(ctx context.Context, logID int64) (out []models.EventLogLine, err error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT original_filename, model, date, severity, message
		FROM vbarlog WHERE logid = ? ORDER BY id`), logID)
	if err != nil {
		return nil, fmt.Errorf("querying event log %d: %w", logID, err)
	}
	defer closeWithError(rows, &err)

	out = make([]models.EventLogLine, 0)
	for rows.Next() {
		var (
			l                     models.EventLogLine
			filename, model, date sql.NullString
		)
		if err = rows.Scan(&filename, &model, &date, &l.Severity, &l.Message); err != nil {
			return nil, err
		}
		if l.Timestamp, err = parser.ParseTimestamp(date.String); err != nil {
			return nil, fmt.Errorf("event log %d: %w", logID, err)
		}
		l.OriginalFilename, l.Model = filename.String, model.String
		out = append(out, l)
	}
	return out, rows.Err()
}

// TelemetryLog returns the stored telemetry samples of one cycle.
func (s *Store) TelemetryLog(ctx context.Context, logID int64) (out []models.TelemetryLogLine, err error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT original_filename, model, date, ampere, voltage, usedcapacity, headspeed, pwm, temp
		FROM uilog WHERE logid = ? ORDER BY id`), logID)
	if err != nil {
		return nil, fmt.Errorf("querying telemetry %d: %w", logID, err)
	}
	defer closeWithError(rows, &err)

	out = make([]models.TelemetryLogLine, 0)
	for rows.Next() {
		var (
			l                     models.TelemetryLogLine
			filename, model, date sql.NullString
			temp                  sql.NullInt64
		)
		if err = rows.Scan(&filename, &model, &date, &l.Current, &l.Voltage, &l.UsedCapacity, &l.Headspeed, &l.PWM, &temp); err != nil {
			return nil, err
		}
		if l.Timestamp, err = parser.ParseTimestamp(date.String); err != nil {
			return nil, fmt.Errorf("telemetry %d: %w", logID, err)
		}
		l.OriginalFilename, l.Model, l.Temp = filename.String, model.String, int(temp.Int64)
		out = append(out, l)
	}
	return out, rows.Err()
}

// GpsLog returns the stored GPS fixes of one cycle.
func (s *Store) GpsLog(ctx context.Context, logID int64) (out []models.GpsLogLine, err error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT original_filename, model, date, latitude, longitude, height, speed
		FROM gpslog WHERE logid = ? ORDER BY id`), logID)
	if err != nil {
		return nil, fmt.Errorf("querying gps %d: %w", logID, err)
	}
	defer closeWithError(rows, &err)

	out = make([]models.GpsLogLine, 0)
	for rows.Next() {
		var (
			l                     models.GpsLogLine
			filename, model, date sql.NullString
		)
		if err = rows.Scan(&filename, &model, &date, &l.Latitude, &l.Longitude, &l.Height, &l.Speed); err != nil {
			return nil, err
		}
		if l.Timestamp, err = parser.ParseTimestamp(date.String); err != nil {
			return nil, fmt.Errorf("gps %d: %w", logID, err)
		}
		l.OriginalFilename, l.Model = filename.String, model.String
		out = append(out, l)
	}
	return out, rows.Err()
}

// CountCycles returns the number of stored charge cycle rows.
func (s *Store) CountCycles(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM batterylog").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cycles: %w", err)
	}
	return n, nil
}

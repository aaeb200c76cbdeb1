package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vbc-logbook/backend/internal/models"
	"github.com/vbc-logbook/backend/internal/parser"
)

// lineBatch is how many detail rows are written between context checks.
const lineBatch = 500

// Tx is one import transaction. Nothing is visible to other readers until
// Commit.
type Tx struct {
	tx *sql.Tx
	s  *Store
}

// Begin starts an import transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	return &Tx{tx: tx, s: s}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction. Calling it after Commit is a no-op.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// CycleExists reports whether the battery already has a cycle at ts.
func (t *Tx) CycleExists(ctx context.Context, batteryID int64, ts string) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx, t.s.q("SELECT COUNT(*) FROM batterylog WHERE batteryid = ? AND date = ?"), batteryID, ts).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking cycle: %w", err)
	}
	return n > 0, nil
}

// InsertCycle writes a charge cycle row and returns its id.
func (t *Tx) InsertCycle(ctx context.Context, r *models.ChargeCycleRecord) (int64, error) {
	var modelID any
	if r.ModelID != 0 {
		modelID = r.ModelID
	}
	var id int64
	err := t.tx.QueryRowContext(ctx, t.s.q(`INSERT INTO batterylog
		(date, batteryid, modelid, duration, capacity, used, minvoltage, maxampere, uid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		parser.FormatTimestamp(r.Timestamp), r.BatteryID, modelID, r.Duration, r.Capacity, r.Used,
		r.MinVoltage, r.MaxAmpere, r.IdleVoltage,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting cycle %s: %w", parser.FormatTimestamp(r.Timestamp), err)
	}
	return id, nil
}

// InsertEventLines writes event log lines for one cycle.
func (t *Tx) InsertEventLines(ctx context.Context, logID int64, lines []models.EventLogLine) error {
	return t.insertLines(ctx, "vbarlog", `INSERT INTO vbarlog
		(logid, original_filename, model, date, severity, message) VALUES (?, ?, ?, ?, ?, ?)`,
		len(lines), func(stmt *sql.Stmt, i int) error {
			l := lines[i]
			_, err := stmt.ExecContext(ctx, logID, l.OriginalFilename, l.Model, parser.FormatTimestamp(l.Timestamp), l.Severity, l.Message)
			return err
		})
}

// InsertTelemetryLines writes telemetry samples for one cycle.
func (t *Tx) InsertTelemetryLines(ctx context.Context, logID int64, lines []models.TelemetryLogLine) error {
	return t.insertLines(ctx, "uilog", `INSERT INTO uilog
		(logid, original_filename, model, date, ampere, voltage, usedcapacity, headspeed, pwm, temp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(lines), func(stmt *sql.Stmt, i int) error {
			l := lines[i]
			_, err := stmt.ExecContext(ctx, logID, l.OriginalFilename, l.Model, parser.FormatTimestamp(l.Timestamp),
				l.Current, l.Voltage, l.UsedCapacity, l.Headspeed, l.PWM, l.Temp)
			return err
		})
}

// InsertGpsLines writes GPS fixes for one cycle.
func (t *Tx) InsertGpsLines(ctx context.Context, logID int64, lines []models.GpsLogLine) error {
	return t.insertLines(ctx, "gpslog", `INSERT INTO gpslog
		(logid, original_filename, model, date, latitude, longitude, height, speed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		len(lines), func(stmt *sql.Stmt, i int) error {
			l := lines[i]
			_, err := stmt.ExecContext(ctx, logID, l.OriginalFilename, l.Model, parser.FormatTimestamp(l.Timestamp),
				l.Latitude, l.Longitude, l.Height, l.Speed)
			return err
		})
}

// SetModelTypeIfUnset records the device type of a model unless one is
// already stored. It reports whether the row changed.
func (t *Tx) SetModelTypeIfUnset(ctx context.Context, modelID int64, deviceType models.DeviceType) (bool, error) {
	if !models.IsValidDeviceType(deviceType) {
		return false, fmt.Errorf("unknown device type %q", deviceType)
	}
	res, err := t.tx.ExecContext(ctx, t.s.q("UPDATE model SET type = ? WHERE id = ? AND type IS NULL"), string(deviceType), modelID)
	if err != nil {
		return false, fmt.Errorf("setting model type: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, nil
	}
	return n > 0, nil
}

func (t *Tx) insertLines(ctx context.Context, table, query string, n int, exec func(*sql.Stmt, int) error) (err error) {
	if n == 0 {
		return nil
	}
	stmt, err := t.tx.PrepareContext(ctx, t.s.q(query))
	if err != nil {
		return fmt.Errorf("preparing %s insert: %w", table, err)
	}
	defer closeWithError(stmt, &err)

	for i := 0; i < n; i++ {
		if i%lineBatch == 0 {
			if err = ctx.Err(); err != nil {
				return err
			}
		}
		if err = exec(stmt, i); err != nil {
			return fmt.Errorf("inserting %s row %d: %w", table, i, err)
		}
	}
	return nil
}

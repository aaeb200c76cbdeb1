package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Dates are stored as "YYYY-MM-DD HH:MM:SS" text in every dialect so range
// filters compare lexically the same way everywhere.

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS battery (
  id   INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,
  name TEXT
);
CREATE TABLE IF NOT EXISTS model (
  id    INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,
  type  VARCHAR(20),
  name  TEXT,
  image BLOB,
  thumb BLOB,
  info  TEXT
);
CREATE TABLE IF NOT EXISTS batterylog (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  date       TEXT,
  batteryid  INTEGER REFERENCES battery(id),
  modelid    INTEGER REFERENCES model(id),
  duration   INTEGER,
  capacity   INTEGER,
  used       INTEGER,
  minvoltage REAL,
  maxampere  REAL,
  uid        REAL
);
CREATE TABLE IF NOT EXISTS vbarlog (
  id                INTEGER PRIMARY KEY AUTOINCREMENT,
  logid             INTEGER REFERENCES batterylog(id),
  original_filename VARCHAR(255),
  model             VARCHAR(255),
  date              TEXT,
  severity          INTEGER,
  message           TEXT
);
CREATE TABLE IF NOT EXISTS uilog (
  id                INTEGER PRIMARY KEY AUTOINCREMENT,
  logid             INTEGER REFERENCES batterylog(id),
  original_filename VARCHAR(255),
  model             VARCHAR(255),
  date              TEXT,
  ampere            REAL,
  voltage           REAL,
  usedcapacity      INTEGER,
  headspeed         INTEGER,
  pwm               INTEGER,
  temp              INTEGER
);
CREATE TABLE IF NOT EXISTS gpslog (
  id                INTEGER PRIMARY KEY AUTOINCREMENT,
  logid             INTEGER REFERENCES batterylog(id),
  original_filename VARCHAR(255),
  model             VARCHAR(255),
  date              TEXT,
  latitude          REAL,
  longitude         REAL,
  height            INTEGER,
  speed             INTEGER
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS battery (
  id   BIGSERIAL PRIMARY KEY,
  name TEXT
);
CREATE TABLE IF NOT EXISTS model (
  id    BIGSERIAL PRIMARY KEY,
  type  VARCHAR(20),
  name  TEXT,
  image BYTEA,
  thumb BYTEA,
  info  TEXT
);
CREATE TABLE IF NOT EXISTS batterylog (
  id         BIGSERIAL PRIMARY KEY,
  date       TEXT,
  batteryid  BIGINT REFERENCES battery(id),
  modelid    BIGINT REFERENCES model(id),
  duration   INTEGER,
  capacity   INTEGER,
  used       INTEGER,
  minvoltage DOUBLE PRECISION,
  maxampere  DOUBLE PRECISION,
  uid        DOUBLE PRECISION
);
CREATE TABLE IF NOT EXISTS vbarlog (
  id                BIGSERIAL PRIMARY KEY,
  logid             BIGINT REFERENCES batterylog(id),
  original_filename VARCHAR(255),
  model             VARCHAR(255),
  date              TEXT,
  severity          INTEGER,
  message           TEXT
);
CREATE TABLE IF NOT EXISTS uilog (
  id                BIGSERIAL PRIMARY KEY,
  logid             BIGINT REFERENCES batterylog(id),
  original_filename VARCHAR(255),
  model             VARCHAR(255),
  date              TEXT,
  ampere            DOUBLE PRECISION,
  voltage           DOUBLE PRECISION,
  usedcapacity      INTEGER,
  headspeed         INTEGER,
  pwm               INTEGER,
  temp              INTEGER
);
CREATE TABLE IF NOT EXISTS gpslog (
  id                BIGSERIAL PRIMARY KEY,
  logid             BIGINT REFERENCES batterylog(id),
  original_filename VARCHAR(255),
  model             VARCHAR(255),
  date              TEXT,
  latitude          DOUBLE PRECISION,
  longitude         DOUBLE PRECISION,
  height            INTEGER,
  speed             INTEGER
);
`

// DuckDB has no SERIAL, ids come from sequences. Foreign keys are left out
// because DuckDB rejects updates on referenced rows.
const duckdbSchema = `
CREATE SEQUENCE IF NOT EXISTS battery_id_seq START 1;
CREATE TABLE IF NOT EXISTS battery (
  id   BIGINT PRIMARY KEY DEFAULT nextval('battery_id_seq'),
  name TEXT
);
CREATE SEQUENCE IF NOT EXISTS model_id_seq START 1;
CREATE TABLE IF NOT EXISTS model (
  id    BIGINT PRIMARY KEY DEFAULT nextval('model_id_seq'),
  type  VARCHAR(20),
  name  TEXT,
  image BLOB,
  thumb BLOB,
  info  TEXT
);
CREATE SEQUENCE IF NOT EXISTS batterylog_id_seq START 1;
CREATE TABLE IF NOT EXISTS batterylog (
  id         BIGINT PRIMARY KEY DEFAULT nextval('batterylog_id_seq'),
  date       TEXT,
  batteryid  BIGINT,
  modelid    BIGINT,
  duration   INTEGER,
  capacity   INTEGER,
  used       INTEGER,
  minvoltage DOUBLE,
  maxampere  DOUBLE,
  uid        DOUBLE
);
CREATE SEQUENCE IF NOT EXISTS vbarlog_id_seq START 1;
CREATE TABLE IF NOT EXISTS vbarlog (
  id                BIGINT PRIMARY KEY DEFAULT nextval('vbarlog_id_seq'),
  logid             BIGINT,
  original_filename VARCHAR(255),
  model             VARCHAR(255),
  date              TEXT,
  severity          INTEGER,
  message           TEXT
);
CREATE SEQUENCE IF NOT EXISTS uilog_id_seq START 1;
CREATE TABLE IF NOT EXISTS uilog (
  id                BIGINT PRIMARY KEY DEFAULT nextval('uilog_id_seq'),
  logid             BIGINT,
  original_filename VARCHAR(255),
  model             VARCHAR(255),
  date              TEXT,
  ampere            DOUBLE,
  voltage           DOUBLE,
  usedcapacity      INTEGER,
  headspeed         INTEGER,
  pwm               INTEGER,
  temp              INTEGER
);
CREATE SEQUENCE IF NOT EXISTS gpslog_id_seq START 1;
CREATE TABLE IF NOT EXISTS gpslog (
  id                BIGINT PRIMARY KEY DEFAULT nextval('gpslog_id_seq'),
  logid             BIGINT,
  original_filename VARCHAR(255),
  model             VARCHAR(255),
  date              TEXT,
  latitude          DOUBLE,
  longitude         DOUBLE,
  height            INTEGER,
  speed             INTEGER
);
`

const indexes = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_batterylog_battery_date ON batterylog (batteryid, date);
CREATE INDEX IF NOT EXISTS idx_vbar_logid ON vbarlog (logid);
CREATE INDEX IF NOT EXISTS idx_ui_logid ON uilog (logid);
CREATE INDEX IF NOT EXISTS idx_gps_logid ON gpslog (logid);
`

// additiveColumns were added to the schema after the first release. Older
// databases get them on open.
var additiveColumns = []struct {
	table, column, kind string
}{
	{"model", "type", "VARCHAR(20)"},
	{"model", "image", "<blob>"},
	{"model", "thumb", "<blob>"},
	{"model", "info", "TEXT"},
	{"uilog", "temp", "INTEGER"},
}

func (s *Store) schema() string {
	switch s.dialect.name {
	case DriverPostgres:
		return postgresSchema
	case DriverDuckDB:
		return duckdbSchema
	default:
		return sqliteSchema
	}
}

func (s *Store) migrate(ctx context.Context) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting schema transaction: %w", err)
	}
	defer func() {
		if err != nil {
			rollbackWithError(tx, &err)
		}
	}()

	if err = execStatements(ctx, tx, s.schema()); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	for _, c := range additiveColumns {
		if err = s.ensureColumn(ctx, tx, c.table, c.column, strings.Replace(c.kind, "<blob>", s.dialect.blobType(), 1)); err != nil {
			return fmt.Errorf("adding column %s.%s: %w", c.table, c.column, err)
		}
	}
	if err = execStatements(ctx, tx, indexes); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing schema: %w", err)
	}
	return nil
}

func (s *Store) ensureColumn(ctx context.Context, tx *sql.Tx, table, column, kind string) error {
	if s.dialect.name != DriverSQLite {
		_, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", table, column, kind))
		return err
	}

	exists, err := sqliteHasColumn(ctx, tx, table, column)
	if err != nil || exists {
		return err
	}
	_, err = tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, kind))
	return err
}

func sqliteHasColumn(ctx context.Context, tx *sql.Tx, table, column string) (found bool, err error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue sql.NullString
			pk        int
		)
		if err = rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if strings.EqualFold(name, column) {
			found = true
		}
	}
	return found, rows.Err()
}

func execStatements(ctx context.Context, tx *sql.Tx, ddl string) error {
	for _, stmt := range strings.Split(ddl, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// BatteryIDs loads the full battery name to id map.
func (s *Store) BatteryIDs(ctx context.Context) (map[string]int64, error) {
	return nameMap(ctx, s.db, "SELECT id, name FROM battery")
}

// ModelIDs loads the full model name to id map.
func (s *Store) ModelIDs(ctx context.Context) (map[string]int64, error) {
	return nameMap(ctx, s.db, "SELECT id, name FROM model")
}

// InsertBattery creates a battery row and returns its id.
func (s *Store) InsertBattery(ctx context.Context, name string) (int64, error) {
	return insertName(ctx, s.db, s.q("INSERT INTO battery (name) VALUES (?) RETURNING id"), "battery", name)
}

// InsertModel creates a model row with no type and returns its id.
func (s *Store) InsertModel(ctx context.Context, name string) (int64, error) {
	return insertName(ctx, s.db, s.q("INSERT INTO model (name) VALUES (?) RETURNING id"), "model", name)
}

// BatteryIDs loads the battery map as seen inside the transaction.
func (t *Tx) BatteryIDs(ctx context.Context) (map[string]int64, error) {
	return nameMap(ctx, t.tx, "SELECT id, name FROM battery")
}

// ModelIDs loads the model map as seen inside the transaction.
func (t *Tx) ModelIDs(ctx context.Context) (map[string]int64, error) {
	return nameMap(ctx, t.tx, "SELECT id, name FROM model")
}

// InsertBattery creates a battery row inside the transaction.
func (t *Tx) InsertBattery(ctx context.Context, name string) (int64, error) {
	return insertName(ctx, t.tx, t.s.q("INSERT INTO battery (name) VALUES (?) RETURNING id"), "battery", name)
}

// InsertModel creates a model row inside the transaction.
func (t *Tx) InsertModel(ctx context.Context, name string) (int64, error) {
	return insertName(ctx, t.tx, t.s.q("INSERT INTO model (name) VALUES (?) RETURNING id"), "model", name)
}

func insertName(ctx context.Context, q queryer, query, table, name string) (int64, error) {
	var id int64
	if err := q.QueryRowContext(ctx, query, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("inserting %s %q: %w", table, name, err)
	}
	return id, nil
}

func nameMap(ctx context.Context, q queryer, query string) (m map[string]int64, err error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("loading names: %w", err)
	}
	defer closeWithError(rows, &err)

	m = make(map[string]int64)
	for rows.Next() {
		var (
			id   int64
			name sql.NullString
		)
		if err = rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		m[name.String] = id
	}
	return m, rows.Err()
}

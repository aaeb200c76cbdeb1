package storage

import (
	// database/sql drivers "pgx" and "sqlite"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         BIGSERIAL PRIMARY KEY,
		username   TEXT NOT NULL UNIQUE,
		hash       TEXT NOT NULL,
		cash       NUMERIC(14,2) NOT NULL DEFAULT 10000.00 CHECK (cash >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS positions (
		user_id BIGINT NOT NULL REFERENCES users(id),
		symbol  TEXT NOT NULL,
		shares  BIGINT NOT NULL CHECK (shares > 0),
		PRIMARY KEY (user_id, symbol)
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id          BIGSERIAL PRIMARY KEY,
		user_id     BIGINT NOT NULL REFERENCES users(id),
		symbol      TEXT NOT NULL,
		shares      BIGINT NOT NULL CHECK (shares <> 0),
		price       NUMERIC NOT NULL,
		total       NUMERIC(14,2) NOT NULL,
		executed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_user_idx ON transactions (user_id, id)`,
	// Quotes keep their full precision; totals are already rounded to cents.
	`ALTER TABLE transactions ALTER COLUMN price TYPE NUMERIC`,
}

// SQLite keeps money as TEXT so decimal strings round-trip exactly.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		username   TEXT NOT NULL UNIQUE,
		hash       TEXT NOT NULL,
		cash       TEXT NOT NULL DEFAULT '10000.00',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS positions (
		user_id INTEGER NOT NULL REFERENCES users(id),
		symbol  TEXT NOT NULL,
		shares  INTEGER NOT NULL CHECK (shares > 0),
		PRIMARY KEY (user_id, symbol)
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id     INTEGER NOT NULL REFERENCES users(id),
		symbol      TEXT NOT NULL,
		shares      INTEGER NOT NULL CHECK (shares <> 0),
		price       TEXT NOT NULL,
		total       TEXT NOT NULL,
		executed_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_user_idx ON transactions (user_id, id)`,
}

// Migrate creates the account tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	stmts := sqliteSchema
	if d == Postgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", d, err)
		}
	}
	return nil
}

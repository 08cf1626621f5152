package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
)

// SQLite DSN for file with foreign keys enforced on every new connection.
// modernc.org/sqlite reads _pragma, mattn/go-sqlite3 reads _foreign_keys.
func DSN(file string, params ...string) string {
	query := append([]string{"_pragma=foreign_keys(1)", "_foreign_keys=1"}, params...)
	return "file:" + file + "?" + strings.Join(query, "&")
}

// Whether the connection enforces REFERENCES clauses.
func ForeignKeys(ctx context.Context, db bun.IDB) (bool, error) {
	var enabled int
	if err := db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return false, fmt.Errorf("ForeignKeys: %w", err)
	}
	return enabled == 1, nil
}

// Create the tables and indexes if missing. Foreign keys are switched on
// first (the pragma is a no-op inside a transaction) and the call fails when
// the driver still doesn't enforce them.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("CreateSchema: can't enable foreign keys: %w", err)
	}
	enabled, err := ForeignKeys(ctx, db)
	if err != nil {
		return fmt.Errorf("CreateSchema: %w", err)
	}
	if !enabled {
		return errors.New("CreateSchema: foreign keys are not enforced")
	}

	if err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, table := range []struct {
			model       interface{}
			foreignKeys []string
		}{
			{model: (*User)(nil)},
			{model: (*Category)(nil)},
			{
				model: (*Event)(nil),
				foreignKeys: []string{
					`("category_id") REFERENCES "categories" ("id") ON DELETE CASCADE`,
				},
			},
			{
				model: (*Registration)(nil),
				foreignKeys: []string{
					`("event_id") REFERENCES "events" ("id") ON DELETE CASCADE`,
					`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
				},
			},
		} {
			query := tx.
				NewCreateTable().
				Model(table.model).
				IfNotExists()
			for _, fk := range table.foreignKeys {
				query = query.ForeignKey(fk)
			}
			if _, err := query.Exec(ctx); err != nil {
				return err
			}
		}

		for _, index := range []struct {
			model   interface{}
			name    string
			columns []string
		}{
			{(*Category)(nil), "categories_created_at_idx", []string{"created_at", "id"}},
			{(*Event)(nil), "events_category_id_start_date_idx", []string{"category_id", "start_date"}},
			{(*Registration)(nil), "registrations_event_id_created_at_idx", []string{"event_id", "created_at"}},
		} {
			if _, err := tx.
				NewCreateIndex().
				Model(index.model).
				Index(index.name).
				Column(index.columns...).
				IfNotExists().
				Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("CreateSchema: %w", err)
	}

	return nil
}

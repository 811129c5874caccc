package series

import (
	"database/sql"

	"github.com/HerbHall/runstats/internal/store"
)

// migrations returns the series checkpoint schema.
func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create checkpoint tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS series_checkpoints (
						name        TEXT PRIMARY KEY,
						kind        TEXT NOT NULL,
						state       BLOB NOT NULL,
						samples     INTEGER NOT NULL DEFAULT 0,
						updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,

					`CREATE TABLE IF NOT EXISTS series_checkpoint_history (
						id          TEXT PRIMARY KEY,
						name        TEXT NOT NULL,
						kind        TEXT NOT NULL,
						state       BLOB NOT NULL,
						samples     INTEGER NOT NULL DEFAULT 0,
						created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_series_history_name_time ON series_checkpoint_history(name, created_at)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

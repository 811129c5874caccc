package series

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/HerbHall/runstats/internal/store"
	"github.com/google/uuid"
)

// Checkpoint is the persisted state of one series.
type Checkpoint struct {
	Name      string
	Kind      Kind
	State     []byte
	Samples   int64
	UpdatedAt time.Time
}

// HistoryEntry is one archived checkpoint.
type HistoryEntry struct {
	ID        string    `json:"id" example:"7f1c1c9e-8a51-4a8e-9f0a-2b3f7f5b8c11"`
	Name      string    `json:"name" example:"api.latency"`
	Kind      Kind      `json:"kind" example:"statistics"`
	State     []byte    `json:"state" swaggertype:"string" format:"base64"`
	Samples   int64     `json:"samples"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckpointStore persists series state in SQLite.
type CheckpointStore struct {
	db *store.SQLiteStore
}

// NewCheckpointStore creates a CheckpointStore backed by db. The schema
// must already be migrated.
func NewCheckpointStore(db *store.SQLiteStore) *CheckpointStore {
	return &CheckpointStore{db: db}
}

// Save upserts the current checkpoint of each series and appends a copy
// to the history table, all in one transaction.
func (s *CheckpointStore) Save(ctx context.Context, cps []Checkpoint) error {
	if len(cps) == 0 {
		return nil
	}
	return s.db.Tx(ctx, func(tx *sql.Tx) error {
		for i := range cps {
			cp := &cps[i]
			if _, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO series_checkpoints (name, kind, state, samples, updated_at)
				VALUES (?, ?, ?, ?, ?)`,
				cp.Name, string(cp.Kind), cp.State, cp.Samples, cp.UpdatedAt.UTC(),
			); err != nil {
				return fmt.Errorf("upsert checkpoint %q: %w", cp.Name, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO series_checkpoint_history (id, name, kind, state, samples, created_at)
				VALUES (?, ?, ?, ?, ?, ?)`,
				uuid.New().String(), cp.Name, string(cp.Kind), cp.State, cp.Samples, cp.UpdatedAt.UTC(),
			); err != nil {
				return fmt.Errorf("insert checkpoint history %q: %w", cp.Name, err)
			}
		}
		return nil
	})
}

// List returns every stored checkpoint ordered by name.
func (s *CheckpointStore) List(ctx context.Context) ([]Checkpoint, error) {
	rows, err := s.db.DB().QueryContext(ctx, `
		SELECT name, kind, state, samples, updated_at
		FROM series_checkpoints ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var cps []Checkpoint
	for rows.Next() {
		var cp Checkpoint
		var kind string
		if err := rows.Scan(&cp.Name, &kind, &cp.State, &cp.Samples, &cp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan checkpoint row: %w", err)
		}
		cp.Kind = Kind(kind)
		cps = append(cps, cp)
	}
	return cps, rows.Err()
}

// Delete removes the current checkpoint of a series. History is kept
// until it ages out.
func (s *CheckpointStore) Delete(ctx context.Context, name string) error {
	if _, err := s.db.DB().ExecContext(ctx, `DELETE FROM series_checkpoints WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete checkpoint %q: %w", name, err)
	}
	return nil
}

// History returns archived checkpoints of a series, newest first.
func (s *CheckpointStore) History(ctx context.Context, name string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.DB().QueryContext(ctx, `
		SELECT id, name, kind, state, samples, created_at
		FROM series_checkpoint_history WHERE name = ?
		ORDER BY created_at DESC LIMIT ?`,
		name, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list checkpoint history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var kind string
		if err := rows.Scan(&e.ID, &e.Name, &kind, &e.State, &e.Samples, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.Kind = Kind(kind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PruneHistory deletes archived checkpoints created before cutoff.
func (s *CheckpointStore) PruneHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.DB().ExecContext(ctx,
		`DELETE FROM series_checkpoint_history WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune checkpoint history: %w", err)
	}
	return res.RowsAffected()
}

package series

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Load restores every stored checkpoint into the manager. Series already
// present are left untouched. A checkpoint that fails to decode is logged
// and skipped.
func (m *Manager) Load(ctx context.Context) (int, error) {
	if m.store == nil {
		return 0, nil
	}
	cps, err := m.store.List(ctx)
	if err != nil {
		return 0, err
	}

	loaded := 0
	for i := range cps {
		cp := &cps[i]
		acc, err := restoreAccumulator(cp.Kind, cp.State, m.clock)
		if err != nil {
			m.logger.Warn("skipping unreadable checkpoint",
				zap.String("series", cp.Name),
				zap.String("kind", string(cp.Kind)),
				zap.Error(err),
			)
			continue
		}
		e := &entry{name: cp.Name, acc: acc, samples: cp.Samples, updatedAt: cp.UpdatedAt}
		if err := m.insert(cp.Name, e); err != nil {
			if errors.Is(err, ErrLimit) {
				return loaded, err
			}
			continue
		}
		loaded++
	}
	m.logger.Info("series checkpoints loaded", zap.Int("count", loaded))
	return loaded, nil
}

// Checkpoint persists every series modified since the last checkpoint and
// removes checkpoints of deleted series.
func (m *Manager) Checkpoint(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	deleted := m.deleted
	m.deleted = make(map[string]struct{})
	m.mu.Unlock()

	var dirty []*entry
	var cps []Checkpoint
	for _, e := range m.snapshot() {
		e.mu.Lock()
		if !e.dirty {
			e.mu.Unlock()
			continue
		}
		data, err := e.acc.marshalState()
		if err != nil {
			e.mu.Unlock()
			m.logger.Warn("marshal series state", zap.String("series", e.name), zap.Error(err))
			continue
		}
		cps = append(cps, Checkpoint{
			Name:      e.name,
			Kind:      e.acc.kind(),
			State:     data,
			Samples:   e.samples,
			UpdatedAt: e.updatedAt,
		})
		e.dirty = false
		e.mu.Unlock()
		dirty = append(dirty, e)
	}

	err := m.store.Save(ctx, cps)
	for name := range deleted {
		if err != nil {
			break
		}
		if derr := m.store.Delete(ctx, name); derr != nil {
			err = derr
		}
	}
	if err != nil {
		m.requeue(dirty, deleted)
		return fmt.Errorf("checkpoint series: %w", err)
	}

	if len(cps) > 0 || len(deleted) > 0 {
		m.logger.Debug("series checkpointed",
			zap.Int("saved", len(cps)),
			zap.Int("removed", len(deleted)),
		)
	}
	return nil
}

// requeue marks entries dirty again after a failed checkpoint so the next
// pass retries them.
func (m *Manager) requeue(dirty []*entry, deleted map[string]struct{}) {
	for _, e := range dirty {
		e.mu.Lock()
		e.dirty = true
		e.mu.Unlock()
	}
	m.mu.Lock()
	for name := range deleted {
		if _, live := m.series[name]; !live {
			m.deleted[name] = struct{}{}
		}
	}
	m.mu.Unlock()
}

// Start launches the background maintenance goroutine. It is a no-op
// without a checkpoint store or a positive checkpoint interval.
func (m *Manager) Start(_ context.Context) error {
	m.ctx, m.cancel = context.WithCancel(context.Background())
	if m.store == nil || m.cfg.CheckpointInterval <= 0 {
		return nil
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.CheckpointInterval)
		defer ticker.Stop()

		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				m.runMaintenance()
			}
		}
	}()
	m.logger.Info("series maintenance started",
		zap.Duration("interval", m.cfg.CheckpointInterval),
	)
	return nil
}

// Stop halts maintenance and writes a final checkpoint.
func (m *Manager) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	if err := m.Checkpoint(ctx); err != nil {
		return err
	}
	m.logger.Info("series manager stopped")
	return nil
}

// runMaintenance executes a single maintenance cycle.
func (m *Manager) runMaintenance() {
	ctx, cancel := context.WithTimeout(m.ctx, 30*time.Second)
	defer cancel()

	if err := m.Checkpoint(ctx); err != nil {
		m.logger.Warn("periodic checkpoint failed", zap.Error(err))
	}

	if m.cfg.HistoryRetention <= 0 {
		return
	}
	cutoff := m.now().Add(-m.cfg.HistoryRetention)
	pruned, err := m.store.PruneHistory(ctx, cutoff)
	if err != nil {
		m.logger.Warn("failed to prune checkpoint history", zap.Error(err))
	} else if pruned > 0 {
		m.logger.Info("pruned checkpoint history", zap.Int64("count", pruned))
	}
}

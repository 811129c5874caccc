// Package series manages named running-statistics accumulators: creation,
// sample ingest, merge and rescale, freeze control, state export, and
// periodic SQLite checkpointing.
package series

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HerbHall/runstats/internal/event"
	"github.com/HerbHall/runstats/internal/store"
	"github.com/HerbHall/runstats/pkg/runstats"
	"go.uber.org/zap"
)

// entry is one registered series. Its mutex guards every field below it.
type entry struct {
	mu        sync.Mutex
	name      string
	acc       accumulator
	samples   int64
	updatedAt time.Time
	dirty     bool
	removed   bool // set by Delete; later updates fail with ErrNotFound
}

func (e *entry) summaryLocked() Summary {
	s := Summary{
		Name:      e.name,
		Kind:      e.acc.kind(),
		Samples:   e.samples,
		UpdatedAt: e.updatedAt,
	}
	e.acc.fill(&s)
	return s
}

// Option configures a Manager.
type Option func(*Manager)

// WithCheckpointStore enables persistence through cs.
func WithCheckpointStore(cs *CheckpointStore) Option {
	return func(m *Manager) { m.store = cs }
}

// WithPublisher publishes series events to p.
func WithPublisher(p event.Publisher) Option {
	return func(m *Manager) { m.bus = p }
}

// WithClock sets the time source for time-based exponential series and
// update timestamps.
func WithClock(c runstats.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// Manager is a concurrency-safe registry of series.
type Manager struct {
	cfg    Config
	logger *zap.Logger
	store  *CheckpointStore
	bus    event.Publisher
	clock  runstats.Clock
	seq    atomic.Uint64 // orders published events

	mu      sync.RWMutex
	series  map[string]*entry
	deleted map[string]struct{} // names awaiting checkpoint removal

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a Manager.
func NewManager(cfg Config, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		cfg:     cfg,
		logger:  logger,
		clock:   runstats.SystemClock,
		series:  make(map[string]*entry),
		deleted: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OpenCheckpointStore runs the series migrations on db and returns a
// CheckpointStore using it.
func OpenCheckpointStore(ctx context.Context, db *store.SQLiteStore) (*CheckpointStore, error) {
	if err := db.Migrate(ctx, "series", migrations()); err != nil {
		return nil, fmt.Errorf("series migrations: %w", err)
	}
	return NewCheckpointStore(db), nil
}

func (m *Manager) now() time.Time {
	return m.clock.Now().UTC()
}

func (m *Manager) get(name string) (*entry, error) {
	m.mu.RLock()
	e, ok := m.series[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return e, nil
}

// withDefaults fills a zero decay with the configured default.
func (m *Manager) withDefaults(spec Spec) Spec {
	if spec.Kind == "" {
		spec.Kind = m.cfg.DefaultKind
	}
	if spec.Kind.Exponential() && spec.Decay == 0 {
		spec.Decay = m.cfg.DefaultDecay
	}
	return spec
}

// insert registers e under name. It fails if the name is taken or the
// series limit is reached.
func (m *Manager) insert(name string, e *entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.series[name]; ok {
		return fmt.Errorf("%w: %q", ErrExists, name)
	}
	if m.cfg.MaxSeries > 0 && len(m.series) >= m.cfg.MaxSeries {
		return fmt.Errorf("%w: %d", ErrLimit, m.cfg.MaxSeries)
	}
	m.series[name] = e
	delete(m.deleted, name)
	return nil
}

// Create registers a new empty series.
func (m *Manager) Create(ctx context.Context, spec Spec) (Summary, error) {
	if err := ValidateName(spec.Name); err != nil {
		return Summary{}, err
	}
	spec = m.withDefaults(spec)
	if !spec.Kind.Valid() {
		return Summary{}, fmt.Errorf("%w: %q", ErrInvalidKind, spec.Kind)
	}
	acc, err := newAccumulator(spec, m.clock)
	if err != nil {
		return Summary{}, err
	}

	e := &entry{name: spec.Name, acc: acc, updatedAt: m.now(), dirty: true}
	if err := m.insert(spec.Name, e); err != nil {
		return Summary{}, err
	}

	e.mu.Lock()
	sum := m.stampLocked(e)
	e.mu.Unlock()

	m.logger.Debug("series created",
		zap.String("series", spec.Name),
		zap.String("kind", string(spec.Kind)),
	)
	m.publish(ctx, event.TopicSeriesCreated, sum)
	return sum, nil
}

// Push appends samples to a series. Each sample must have Kind.Arity()
// values. When auto_create is on, a missing series is created with the
// default kind. Samples are applied all-or-nothing with respect to arity.
func (m *Manager) Push(ctx context.Context, name string, samples ...[]float64) (Summary, error) {
	e, err := m.get(name)
	if errors.Is(err, ErrNotFound) && m.cfg.AutoCreate {
		if _, cerr := m.Create(ctx, Spec{Name: name}); cerr != nil && !errors.Is(cerr, ErrExists) {
			return Summary{}, cerr
		}
		e, err = m.get(name)
	}
	if err != nil {
		return Summary{}, err
	}

	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return Summary{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	arity := e.acc.kind().Arity()
	for i, s := range samples {
		if len(s) != arity {
			e.mu.Unlock()
			return Summary{}, fmt.Errorf("%w: sample %d has %d values, %s series takes %d",
				ErrArity, i, len(s), e.acc.kind(), arity)
		}
	}
	for _, s := range samples {
		e.acc.push(s)
	}
	e.samples += int64(len(samples))
	sum := m.touchLocked(e)
	e.mu.Unlock()

	m.publish(ctx, event.TopicSeriesUpdated, sum)
	return sum, nil
}

// touchLocked marks e modified and returns its summary stamped for
// publication.
func (m *Manager) touchLocked(e *entry) Summary {
	e.updatedAt = m.now()
	e.dirty = true
	return m.stampLocked(e)
}

// stampLocked returns the summary of e with the next event sequence
// number. Called with e.mu held, so sequence order matches update order
// for each series.
func (m *Manager) stampLocked(e *entry) Summary {
	s := e.summaryLocked()
	s.Seq = m.seq.Add(1)
	return s
}

// Summary returns the current summary of a series.
func (m *Manager) Summary(name string) (Summary, error) {
	e, err := m.get(name)
	if err != nil {
		return Summary{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summaryLocked(), nil
}

// List returns summaries of all series sorted by name.
func (m *Manager) List() []Summary {
	entries := m.snapshot()
	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.summaryLocked())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered series.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.series)
}

// snapshot copies the entry list so callers can iterate without holding
// the registry lock.
func (m *Manager) snapshot() []*entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*entry, 0, len(m.series))
	for _, e := range m.series {
		out = append(out, e)
	}
	return out
}

// Merge folds src into dst. Both must have the same kind; src is not
// modified. Merging a series into itself doubles its weight.
func (m *Manager) Merge(ctx context.Context, dst, src string) (Summary, error) {
	de, err := m.get(dst)
	if err != nil {
		return Summary{}, err
	}
	se, err := m.get(src)
	if err != nil {
		return Summary{}, err
	}

	// Copy src under its own lock so the two locks are never held together.
	se.mu.Lock()
	other := se.acc.clone()
	otherSamples := se.samples
	se.mu.Unlock()

	de.mu.Lock()
	if de.removed {
		de.mu.Unlock()
		return Summary{}, fmt.Errorf("%w: %q", ErrNotFound, dst)
	}
	if de.acc.kind() != other.kind() {
		de.mu.Unlock()
		return Summary{}, fmt.Errorf("%w: %s into %s", ErrKindMismatch, other.kind(), de.acc.kind())
	}
	de.acc.merge(other)
	de.samples += otherSamples
	sum := m.touchLocked(de)
	de.mu.Unlock()

	m.publish(ctx, event.TopicSeriesUpdated, sum)
	return sum, nil
}

// Scale multiplies the weight of a series by factor.
func (m *Manager) Scale(ctx context.Context, name string, factor float64) (Summary, error) {
	return m.update(ctx, name, func(e *entry) error {
		e.acc.scale(factor)
		return nil
	})
}

// Reset clears a series back to its empty (or seeded) state.
func (m *Manager) Reset(ctx context.Context, name string) (Summary, error) {
	return m.update(ctx, name, func(e *entry) error {
		e.acc.reset()
		e.samples = 0
		return nil
	})
}

// Freeze suspends elapsed-time accrual of a time-based exponential series.
func (m *Manager) Freeze(ctx context.Context, name string) (Summary, error) {
	return m.update(ctx, name, func(e *entry) error { return e.acc.freeze() })
}

// Unfreeze resumes elapsed-time accrual.
func (m *Manager) Unfreeze(ctx context.Context, name string) (Summary, error) {
	return m.update(ctx, name, func(e *entry) error { return e.acc.unfreeze() })
}

func (m *Manager) update(ctx context.Context, name string, fn func(e *entry) error) (Summary, error) {
	e, err := m.get(name)
	if err != nil {
		return Summary{}, err
	}
	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return Summary{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err := fn(e); err != nil {
		e.mu.Unlock()
		return Summary{}, err
	}
	sum := m.touchLocked(e)
	e.mu.Unlock()

	m.publish(ctx, event.TopicSeriesUpdated, sum)
	return sum, nil
}

// Delete removes a series. Its checkpoint is removed on the next
// checkpoint pass.
func (m *Manager) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	e, ok := m.series[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(m.series, name)
	m.deleted[name] = struct{}{}
	m.mu.Unlock()

	e.mu.Lock()
	e.removed = true
	del := Deletion{Name: name, Seq: m.seq.Add(1)}
	e.mu.Unlock()

	m.logger.Debug("series deleted", zap.String("series", name))
	m.publish(ctx, event.TopicSeriesDeleted, del)
	return nil
}

// Deletion is the payload of a series.deleted event.
type Deletion struct {
	Name string
	Seq  uint64
}

// State is the exported binary state of a series.
type State struct {
	Name  string `json:"name" example:"api.latency"`
	Kind  Kind   `json:"kind" example:"statistics"`
	State []byte `json:"state" swaggertype:"string" format:"base64"`
}

// State exports the state of a series.
func (m *Manager) State(name string) (State, error) {
	e, err := m.get(name)
	if err != nil {
		return State{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	data, err := e.acc.marshalState()
	if err != nil {
		return State{}, fmt.Errorf("marshal state %q: %w", name, err)
	}
	return State{Name: name, Kind: e.acc.kind(), State: data}, nil
}

// Restore replaces (or creates) a series from an exported state. An
// existing series must have the same kind. The sample count restarts at
// zero because exported state carries weights, not push counts.
func (m *Manager) Restore(ctx context.Context, name string, kind Kind, data []byte) (Summary, error) {
	if err := ValidateName(name); err != nil {
		return Summary{}, err
	}
	acc, err := restoreAccumulator(kind, data, m.clock)
	if err != nil {
		return Summary{}, err
	}

	if e, err := m.get(name); err == nil {
		e.mu.Lock()
		if e.removed {
			e.mu.Unlock()
			return Summary{}, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		if e.acc.kind() != kind {
			e.mu.Unlock()
			return Summary{}, fmt.Errorf("%w: %s over %s", ErrKindMismatch, kind, e.acc.kind())
		}
		e.acc = acc
		e.samples = 0
		sum := m.touchLocked(e)
		e.mu.Unlock()
		m.publish(ctx, event.TopicSeriesUpdated, sum)
		return sum, nil
	}

	e := &entry{name: name, acc: acc, updatedAt: m.now(), dirty: true}
	if err := m.insert(name, e); err != nil {
		return Summary{}, err
	}
	e.mu.Lock()
	sum := m.stampLocked(e)
	e.mu.Unlock()
	m.publish(ctx, event.TopicSeriesCreated, sum)
	return sum, nil
}

// History returns archived checkpoints of a series, newest first.
func (m *Manager) History(ctx context.Context, name string, limit int) ([]HistoryEntry, error) {
	if m.store == nil {
		return []HistoryEntry{}, nil
	}
	return m.store.History(ctx, name, limit)
}

// publish delivers an event synchronously. It must be called without any
// entry lock held.
func (m *Manager) publish(ctx context.Context, topic string, payload any) {
	if m.bus == nil {
		return
	}
	err := m.bus.Publish(ctx, event.Event{
		Topic:     topic,
		Source:    "series",
		Timestamp: m.now(),
		Payload:   payload,
	})
	if err != nil {
		m.logger.Warn("publish series event failed",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
}

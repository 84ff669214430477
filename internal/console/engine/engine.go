// Package engine implements the live submission synchronization and
// moderation engine behind the operator console. It owns the local snapshot
// of the remote collection, the staged verification-code edits, the
// destructive-action confirmation gate, and the transient status messages.
// All mutation happens through the operations defined here; the snapshot and
// staging map are never handed out for external mutation.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"veridesk/internal/console/metrics"
	"veridesk/internal/console/models"
	"veridesk/internal/console/store"
	"veridesk/internal/console/tracer"
	"veridesk/internal/console/view"
)

// Cue is the fire-and-forget activity notification collaborator, invoked
// once per delivered change-set. Implementations handle their own failures.
type Cue interface {
	Play()
}

// Stats are the counters derived from the current snapshot.
type Stats struct {
	Total     int `json:"total"`
	CardCount int `json:"card_count"`
}

// RecordView is a snapshot record as displayed: the committed record plus
// the staged verification code shadowing it, if any.
type RecordView struct {
	models.Submission
	EffectiveCode string `json:"effective_code"`
	Staged        bool   `json:"staged"`
}

// Engine keeps a local snapshot of the remote submission collection in sync
// and applies moderation actions against it. Local state is a "last known"
// cache: every delivered change-set fully replaces it, and a fresher
// change-set always wins over an optimistic local mutation whose write is
// still in flight.
type Engine struct {
	collection store.Collection
	cue        Cue
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     tracer.Tracer
	messages   *MessageCenter

	mu          sync.Mutex
	snapshot    []models.Submission
	ready       bool
	search      string
	filter      models.Filter
	staged      map[string]string
	gate        confirmGate
	unsubscribe store.Unsubscribe
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithCue sets the activity cue fired on each delivered change-set.
func WithCue(cue Cue) Option {
	return func(e *Engine) {
		e.cue = cue
	}
}

// WithMetrics sets the Prometheus metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTracer sets the tracer for engine operations.
func WithTracer(t tracer.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithMessageTTL overrides how long transient status messages stay visible.
func WithMessageTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.messages = NewMessageCenter(ttl)
	}
}

// New creates an engine over the given collection.
func New(collection store.Collection, opts ...Option) *Engine {
	e := &Engine{
		collection: collection,
		logger:     slog.Default(),
		tracer:     tracer.NewNoop(),
		messages:   NewMessageCenter(3 * time.Second),
		staged:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start opens the standing collection subscription. The engine holds exactly
// one subscription at a time; starting an already started engine is a no-op.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.unsubscribe != nil {
		e.mu.Unlock()
		return nil
	}
	// Reserve the slot so a concurrent Start cannot double-subscribe while
	// the subscription is being established.
	e.unsubscribe = func() {}
	e.mu.Unlock()

	unsub, err := e.collection.Subscribe(ctx, e.handleChangeSet)
	if err != nil {
		e.mu.Lock()
		e.unsubscribe = nil
		e.mu.Unlock()
		return err
	}

	e.mu.Lock()
	e.unsubscribe = unsub
	e.mu.Unlock()
	return nil
}

// Stop releases the subscription. The last-known snapshot is kept so the
// operator can keep working from stale data. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	unsub := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// handleChangeSet is the subscription callback. Each delivered change-set
// fully replaces the visible-record list; hidden records never enter the
// snapshot. Change-sets are applied in delivery order.
func (e *Engine) handleChangeSet(records []models.Submission) {
	visible := make([]models.Submission, 0, len(records))
	withCard := 0
	for _, r := range records {
		if r.Hidden {
			continue
		}
		visible = append(visible, r)
		if r.HasCard() {
			withCard++
		}
	}

	e.mu.Lock()
	e.snapshot = visible
	e.ready = true
	e.mu.Unlock()

	e.metrics.RecordSnapshot(len(visible), withCard)
	e.playCue()
}

// playCue fires the activity cue. The cue is best-effort: a failing cue
// must not affect snapshot correctness.
func (e *Engine) playCue() {
	if e.cue == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("activity cue failed", "error", r)
		}
	}()
	e.cue.Play()
}

// SetSearch updates the free-text search input.
func (e *Engine) SetSearch(query string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.search = query
}

// SetFilter updates the active named filter.
func (e *Engine) SetFilter(filter models.Filter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filter = filter
}

// ResetFilters clears the search text and the active filter together.
func (e *Engine) ResetFilters() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.search = ""
	e.filter = models.FilterNone
}

// Search returns the current search input.
func (e *Engine) Search() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.search
}

// Filter returns the active filter.
func (e *Engine) Filter() models.Filter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

// View derives the displayed record list from the current snapshot, search,
// and filter. The second return value is false until the first change-set
// arrives, letting callers distinguish "still loading" from "no matches".
func (e *Engine) View() ([]RecordView, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	derived := view.Derive(e.snapshot, e.search, e.filter)
	result := make([]RecordView, len(derived))
	for i, record := range derived {
		code, staged := record.Code, false
		if v, ok := e.staged[record.ID]; ok {
			code, staged = v, true
		}
		result[i] = RecordView{Submission: record, EffectiveCode: code, Staged: staged}
	}
	return result, e.ready
}

// Record looks up a single record in the current snapshot.
func (e *Engine) Record(id string) (models.Submission, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.snapshot {
		if r.ID == id {
			return r, true
		}
	}
	return models.Submission{}, false
}

// Snapshot returns a copy of the current visible-record list.
func (e *Engine) Snapshot() []models.Submission {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Submission, len(e.snapshot))
	copy(out, e.snapshot)
	return out
}

// Stats returns counters derived from the current snapshot.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := Stats{Total: len(e.snapshot)}
	for _, r := range e.snapshot {
		if r.HasCard() {
			stats.CardCount++
		}
	}
	return stats
}

// Message returns the currently visible transient status message, if any.
func (e *Engine) Message() (StatusMessage, bool) {
	return e.messages.Current()
}

// PendingConfirmation returns the pending destructive-action target, if any.
// The target is either a record identity or TargetAll.
func (e *Engine) PendingConfirmation() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate.pending()
}

// mirrorLocked applies fn to the snapshot's copy of the record, if present.
// Callers must hold e.mu.
func (e *Engine) mirrorLocked(id string, fn func(*models.Submission)) bool {
	for i := range e.snapshot {
		if e.snapshot[i].ID == id {
			fn(&e.snapshot[i])
			return true
		}
	}
	return false
}

// removeLocked drops the record from the snapshot, preserving order.
// Callers must hold e.mu.
func (e *Engine) removeLocked(id string) {
	for i := range e.snapshot {
		if e.snapshot[i].ID == id {
			e.snapshot = append(e.snapshot[:i], e.snapshot[i+1:]...)
			return
		}
	}
}

func (e *Engine) postSuccess(text string) {
	e.messages.Post(MessageSuccess, text)
	e.metrics.RecordMessage(string(MessageSuccess))
}

func (e *Engine) postError(text string) {
	e.messages.Post(MessageError, text)
	e.metrics.RecordMessage(string(MessageError))
}

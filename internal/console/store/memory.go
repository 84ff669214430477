package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"veridesk/internal/console/models"
)

// Memory is an in-memory Collection. It keeps documents in creation order
// and notifies every subscriber synchronously with the full current set on
// each change, which makes change-set delivery order deterministic.
type Memory struct {
	mu          sync.Mutex
	records     []models.Submission
	index       map[string]int // record ID -> position in records
	subscribers map[int]SnapshotFunc
	nextSubID   int
}

// NewMemory creates an empty in-memory collection.
func NewMemory() *Memory {
	return &Memory{
		index:       make(map[string]int),
		subscribers: make(map[int]SnapshotFunc),
	}
}

// Subscribe registers fn and immediately delivers the current document set.
func (m *Memory) Subscribe(_ context.Context, fn SnapshotFunc) (Unsubscribe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	fn(m.snapshotLocked())

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subscribers, id)
		})
	}, nil
}

// Add inserts a new submission, assigning its identity. This is the external
// ingestion path; the console engine never calls it.
func (m *Memory) Add(_ context.Context, record models.Submission) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record.ID = uuid.New().String()
	if record.Disposition == "" {
		record.Disposition = models.DispositionPending
	}
	if record.ReceivedAt.IsZero() {
		record.ReceivedAt = time.Now().UTC()
	}
	m.index[record.ID] = len(m.records)
	m.records = append(m.records, record)
	m.notifyLocked()
	return record.ID, nil
}

// Write applies a partial update to a single record.
func (m *Memory) Write(_ context.Context, id string, patch Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.index[id]
	if !ok {
		return ErrNotFound
	}
	applyPatch(&m.records[pos], patch)
	m.notifyLocked()
	return nil
}

// BatchWrite applies all updates atomically. Every target is validated before
// anything is mutated, so a single unknown identity rejects the whole batch.
func (m *Memory) BatchWrite(_ context.Context, updates []Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range updates {
		if _, ok := m.index[u.ID]; !ok {
			return ErrNotFound
		}
	}
	for _, u := range updates {
		applyPatch(&m.records[m.index[u.ID]], u.Patch)
	}
	m.notifyLocked()
	return nil
}

func applyPatch(record *models.Submission, patch Patch) {
	if patch.Disposition != nil {
		record.Disposition = *patch.Disposition
	}
	if patch.Code != nil {
		record.Code = *patch.Code
	}
	if patch.Hidden != nil {
		record.Hidden = *patch.Hidden
	}
}

// snapshotLocked copies the current document set. Payload pointers are
// shared; consumers treat payloads as immutable pass-through data.
func (m *Memory) snapshotLocked() []models.Submission {
	out := make([]models.Submission, len(m.records))
	copy(out, m.records)
	return out
}

func (m *Memory) notifyLocked() {
	snapshot := m.snapshotLocked()
	for _, fn := range m.subscribers {
		fn(snapshot)
	}
}

var _ Collection = (*Memory)(nil)

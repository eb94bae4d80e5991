// Package runstore provides owner-scoped storage for runs.
package runstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
)

var _ core.RunStore = (*Memory)(nil)

// partition holds one owner's runs. Records are replaced, never edited,
// so a pointer read under the lock is always a fully formed run.
type partition struct {
	byID  map[string]*core.Run
	order []string
}

// Memory is an in-memory RunStore. Safe for concurrent access.
// Nothing survives a process restart.
type Memory struct {
	mu     sync.RWMutex
	owners map[string]*partition
	now    func() time.Time
	newID  func() string
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// WithIDGenerator overrides run id allocation.
func WithIDGenerator(gen func() string) MemoryOption {
	return func(m *Memory) {
		m.newID = gen
	}
}

// NewMemory returns an empty store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		owners: make(map[string]*partition),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create stores a new pending run for owner.
func (m *Memory) Create(_ context.Context, owner string, in core.NewRun) (*core.Run, error) {
	run := newRecord(m.newID(), owner, m.now(), in)

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.owners[owner]
	if !ok {
		p = &partition{byID: make(map[string]*core.Run)}
		m.owners[owner] = p
	}
	p.byID[run.ID] = run
	p.order = append(p.order, run.ID)

	return run.Clone(), nil
}

// Get returns the owner's run with the given id.
func (m *Memory) Get(_ context.Context, owner, id string) (*core.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run := m.lookup(owner, id)
	if run == nil {
		return nil, core.ErrNotFound("run", id)
	}
	return run.Clone(), nil
}

// Update applies patch and swaps in the resulting record.
func (m *Memory) Update(_ context.Context, owner, id string, patch core.RunPatch) (*core.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.lookup(owner, id)
	if current == nil {
		return nil, core.ErrNotFound("run", id)
	}
	next, err := current.Apply(patch)
	if err != nil {
		return nil, err
	}
	m.owners[owner].byID[id] = next

	return next.Clone(), nil
}

// List returns the owner's runs in creation order.
func (m *Memory) List(_ context.Context, owner string) ([]*core.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.owners[owner]
	if !ok {
		return []*core.Run{}, nil
	}
	out := make([]*core.Run, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.byID[id].Clone())
	}
	return out, nil
}

// Close is a no-op for the memory store.
func (m *Memory) Close() error { return nil }

func (m *Memory) lookup(owner, id string) *core.Run {
	p, ok := m.owners[owner]
	if !ok {
		return nil
	}
	return p.byID[id]
}

func newRecord(id, owner string, now time.Time, in core.NewRun) *core.Run {
	return &core.Run{
		ID:             id,
		OwnerToken:     owner,
		ActionType:     in.ActionType,
		Source:         in.Source,
		LeadID:         in.LeadID,
		Status:         core.RunStatusPending,
		CreatedAt:      now,
		RequestPayload: core.ClonePayload(in.RequestPayload),
		RetryOf:        in.RetryOf,
	}
}

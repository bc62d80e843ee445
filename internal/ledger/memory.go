package ledger

import (
	"context"
	"slices"
	"sync"
	"time"

	"pollbook/pkg/platform/sentinel"
	"pollbook/pkg/requestcontext"
)

const backendMemory = "memory"

// InMemory keeps entries in process. Transactions are serialized by a writer
// lock and their writes are staged until fn returns without error.
type InMemory struct {
	mu      sync.RWMutex
	entries map[Key][]byte
	expiry  map[Key]time.Time
	timeout time.Duration
	closed  bool
}

type MemoryOption func(*InMemory)

// WithMemoryTxTimeout overrides DefaultTxTimeout.
func WithMemoryTxTimeout(d time.Duration) MemoryOption {
	return func(m *InMemory) {
		m.timeout = d
	}
}

func NewInMemory(opts ...MemoryOption) *InMemory {
	m := &InMemory{
		entries: make(map[Key][]byte),
		expiry:  make(map[Key]time.Time),
		timeout: DefaultTxTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *InMemory) Get(ctx context.Context, key Key) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return memView{m}.Get(ctx, key)
}

func (m *InMemory) Has(ctx context.Context, key Key) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return memView{m}.Has(ctx, key)
}

func (m *InMemory) ExpiresAt(_ context.Context, key Key) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return time.Time{}, false, sentinel.ErrUnavailable
	}
	at, ok := m.expiry[key]
	return at, ok, nil
}

func (m *InMemory) View(ctx context.Context, fn func(ctx context.Context, r Reader) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(ctx, memView{m})
}

func (m *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	start := time.Now()
	defer func() { observeTx(backendMemory, start, err) }()

	ctx, cancel, err := withTxDeadline(ctx, m.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return sentinel.ErrUnavailable
	}

	tx := &memTx{
		view:   memView{m},
		writes: make(map[Key][]byte),
		expiry: make(map[Key]time.Time),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for k, v := range tx.writes {
		m.entries[k] = v
	}
	for k, at := range tx.expiry {
		m.expiry[k] = at
	}
	return nil
}

func (m *InMemory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// memView reads committed state; the caller holds the lock.
type memView struct {
	m *InMemory
}

func (v memView) Get(_ context.Context, key Key) ([]byte, error) {
	if v.m.closed {
		return nil, sentinel.ErrUnavailable
	}
	raw, ok := v.m.entries[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return slices.Clone(raw), nil
}

func (v memView) Has(_ context.Context, key Key) (bool, error) {
	if v.m.closed {
		return false, sentinel.ErrUnavailable
	}
	_, ok := v.m.entries[key]
	return ok, nil
}

type memTx struct {
	view   memView
	writes map[Key][]byte
	expiry map[Key]time.Time
}

func (t *memTx) Get(ctx context.Context, key Key) ([]byte, error) {
	if raw, ok := t.writes[key]; ok {
		return slices.Clone(raw), nil
	}
	return t.view.Get(ctx, key)
}

func (t *memTx) Has(ctx context.Context, key Key) (bool, error) {
	if _, ok := t.writes[key]; ok {
		return true, nil
	}
	return t.view.Has(ctx, key)
}

func (t *memTx) Put(_ context.Context, key Key, value []byte) error {
	t.writes[key] = slices.Clone(value)
	return nil
}

func (t *memTx) Create(ctx context.Context, key Key, value []byte) error {
	exists, err := t.Has(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return sentinel.ErrAlreadyUsed
	}
	return t.Put(ctx, key, value)
}

func (t *memTx) Extend(ctx context.Context, key Key, ttl time.Duration) error {
	exists, err := t.Has(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	deadline := requestcontext.Now(ctx).Add(ttl)
	current, staged := t.expiry[key]
	if !staged {
		current = t.view.m.expiry[key]
	}
	if deadline.After(current) {
		t.expiry[key] = deadline
	}
	return nil
}

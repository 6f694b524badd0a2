package registration

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps registrations in process memory. Nothing survives a
// restart; health output reports it as non-durable.
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Registration
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]Registration)}
}

func (m *MemoryStore) Insert(_ context.Context, reg *Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[reg.ID]; exists {
		return ErrDuplicateID
	}
	m.byID[reg.ID] = clone(*reg, true)
	m.order = append(m.order, reg.ID)
	return nil
}

func (m *MemoryStore) List(context.Context) ([]Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Registration, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, clone(m.byID[id], false))
	}
	return out, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reg, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := clone(reg, true)
	return &c, nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, id string, status Status, at time.Time) (*Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	reg.Status = status
	reg.UpdatedAt = at
	m.byID[id] = reg
	c := clone(reg, true)
	return &c, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Info() StoreInfo {
	return StoreInfo{Backend: "memory", Durable: false}
}

func (m *MemoryStore) Close() error { return nil }

// clone copies the slices of a registration so callers cannot mutate
// stored state. withData controls whether inline payment bytes are kept.
func clone(r Registration, withData bool) Registration {
	r.Participants = append([]Participant(nil), r.Participants...)
	if withData && r.PaymentScreenshot.Data != nil {
		r.PaymentScreenshot.Data = append([]byte(nil), r.PaymentScreenshot.Data...)
	} else {
		r.PaymentScreenshot.Data = nil
	}
	return r
}

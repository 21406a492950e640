package submissions

import (
	"context"
	"sync"
)

// MemoryStore keeps submissions in process memory
type MemoryStore struct {
	mu   sync.Mutex
	data []Envelope
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save stores rec
func (m *MemoryStore) Save(ctx context.Context, rec Record) error {
	env, err := envelopeOf(rec)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append(m.data, env)
	return nil
}

// List returns the stored envelopes of kind, or all kinds when kind is empty
func (m *MemoryStore) List(ctx context.Context, kind string) ([]Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Envelope
	for _, env := range m.data {
		if kind == "" || env.Kind == kind {
			out = append(out, env)
		}
	}
	sortEnvelopes(out)
	return out, nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}

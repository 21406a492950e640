// Package submissions persists validated form submissions. Records are
// written once and never updated.
package submissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"solarman/internal/services/storage"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name
var ErrUnknownBackend = errors.New("unknown storage backend")

// Record is anything that can be stored as a submission
type Record interface {
	RecordID() string
	RecordKind() string
	RecordTime() time.Time
}

// Envelope is a stored record with its payload kept as raw JSON
type Envelope struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Store saves and lists submissions
type Store interface {
	Save(ctx context.Context, rec Record) error
	List(ctx context.Context, kind string) ([]Envelope, error)
	Close() error
}

// Options selects and configures a backend
type Options struct {
	Backend     string // file, sqlite, postgres, memory
	Files       *storage.Storage
	DatabaseURL string
}

// Open returns the store for opts.Backend, defaulting to file
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", "file":
		if opts.Files == nil {
			return nil, errors.New("file backend needs a storage root")
		}
		return NewFileStore(opts.Files), nil
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		s, err := OpenSQLite(opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := OpenPostgres(opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

func envelopeOf(rec Record) (Envelope, error) {
	if rec.RecordID() == "" {
		return Envelope{}, errors.New("record has no ID")
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s %s: %w", rec.RecordKind(), rec.RecordID(), err)
	}
	return Envelope{
		ID:        rec.RecordID(),
		Kind:      rec.RecordKind(),
		CreatedAt: rec.RecordTime().UTC(),
		Payload:   payload,
	}, nil
}

// sortEnvelopes orders oldest first, ID breaking ties
func sortEnvelopes(envs []Envelope) {
	sort.Slice(envs, func(i, j int) bool {
		if !envs[i].CreatedAt.Equal(envs[j].CreatedAt) {
			return envs[i].CreatedAt.Before(envs[j].CreatedAt)
		}
		return envs[i].ID < envs[j].ID
	})
}

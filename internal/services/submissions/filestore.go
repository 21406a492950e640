package submissions

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"solarman/internal/models"
	"solarman/internal/services/storage"
)

// filesDir is the storage subdirectory holding one folder per kind
const filesDir = "submissions"

var knownKinds = []string{models.KindContact, models.KindConsultation}

// FileStore writes one JSON document per submission through a Storage, so
// records are encrypted at rest whenever the storage is
type FileStore struct {
	store *storage.Storage
}

// NewFileStore stores submissions under s
func NewFileStore(s *storage.Storage) *FileStore {
	return &FileStore{store: s}
}

// Save writes rec to submissions/<kind>/<id>.json
func (f *FileStore) Save(ctx context.Context, rec Record) error {
	env, err := envelopeOf(rec)
	if err != nil {
		return err
	}
	if strings.ContainsAny(env.ID, `/\`) || strings.Contains(env.ID, "..") {
		return fmt.Errorf("invalid record ID %q", env.ID)
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}
	if err := f.store.WriteFile(path.Join(filesDir, env.Kind, env.ID+".json"), data); err != nil {
		return fmt.Errorf("saving %s %s: %w", env.Kind, env.ID, err)
	}
	return nil
}

// List reads every stored record of kind, or of all known kinds when kind
// is empty
func (f *FileStore) List(ctx context.Context, kind string) ([]Envelope, error) {
	kinds := []string{kind}
	if kind == "" {
		kinds = knownKinds
	}

	var out []Envelope
	for _, k := range kinds {
		dir := path.Join(filesDir, k)
		names, err := f.store.List(dir)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", dir, err)
		}
		for _, name := range names {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			data, err := f.store.ReadFile(path.Join(dir, name))
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", name, err)
			}
			var env Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				return nil, fmt.Errorf("decoding %s: %w", name, err)
			}
			out = append(out, env)
		}
	}
	sortEnvelopes(out)
	return out, nil
}

// Close is a no-op; the Storage outlives the store
func (f *FileStore) Close() error {
	return nil
}

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Store persists the three record sets. Persist fully replaces a set.
type Store interface {
	Load(ctx context.Context, kind Kind) ([]Record, error)
	Persist(ctx context.Context, kind Kind, records []Record) error
}

// Apply loads kind, merges incoming into it, fills schema defaults and
// persists the result. The merged set is returned along with the stats.
func Apply(ctx context.Context, s Store, kind Kind, incoming []Record) ([]Record, MergeStats, error) {
	existing, err := s.Load(ctx, kind)
	if err != nil {
		return nil, MergeStats{}, errors.Wrapf(err, "unable to load %s", kind)
	}

	merged, stats := Merge(existing, incoming, kind.Key())
	merged = WithDefaults(kind, merged)

	if err := s.Persist(ctx, kind, merged); err != nil {
		return nil, stats, errors.Wrapf(err, "unable to persist %s", kind)
	}

	return merged, stats, nil
}

// FileStore keeps each set as a JSON array in <dir>/<kind>.json.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("dir cannot be empty")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "unable to create data dir '%s'", dir)
	}

	return &FileStore{dir: dir}, nil
}

// Path returns the file backing kind.
func (f *FileStore) Path(kind Kind) string {
	return filepath.Join(f.dir, kind.FileName())
}

// Load returns an empty set when the file does not exist yet. A file that
// cannot be decoded is an error so it is never silently overwritten.
func (f *FileStore) Load(_ context.Context, kind Kind) ([]Record, error) {
	data, err := os.ReadFile(f.Path(kind))
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}

		return nil, errors.Wrapf(err, "unable to read '%s'", f.Path(kind))
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []Record{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []Record
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrapf(err, "unable to decode '%s'", f.Path(kind))
	}

	records := make([]Record, 0, len(raw))
	for _, r := range raw {
		if r != nil {
			records = append(records, r)
		}
	}

	return records, nil
}

// Persist writes through a temp file and rename so a crash never leaves a
// truncated set behind.
func (f *FileStore) Persist(_ context.Context, kind Kind, records []Record) error {
	if records == nil {
		records = []Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "unable to encode %s", kind)
	}

	tmp, err := os.CreateTemp(f.dir, "."+string(kind)+"-*.json")
	if err != nil {
		return errors.Wrap(err, "unable to create temp file")
	}

	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "unable to write '%s'", tmp.Name())
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "unable to close '%s'", tmp.Name())
	}

	if err := os.Rename(tmp.Name(), f.Path(kind)); err != nil {
		return errors.Wrapf(err, "unable to replace '%s'", f.Path(kind))
	}

	return nil
}

// MemoryStore keeps sets in memory. Loads and persists copy records, so
// callers never share maps with the store.
type MemoryStore struct {
	sets map[Kind][]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: make(map[Kind][]Record)}
}

func (m *MemoryStore) Load(_ context.Context, kind Kind) ([]Record, error) {
	return cloneAll(m.sets[kind]), nil
}

func (m *MemoryStore) Persist(_ context.Context, kind Kind, records []Record) error {
	m.sets[kind] = cloneAll(records)
	return nil
}

// ReadOnly wraps a store so nothing reaches it. Persisted sets are kept in
// memory and returned by later loads, so a dry run still accumulates merges
// across connectors.
func ReadOnly(s Store) Store {
	return &readOnly{Store: s, overlay: NewMemoryStore()}
}

type readOnly struct {
	Store
	overlay *MemoryStore
}

func (r *readOnly) Load(ctx context.Context, kind Kind) ([]Record, error) {
	if _, ok := r.overlay.sets[kind]; ok {
		return r.overlay.Load(ctx, kind)
	}

	return r.Store.Load(ctx, kind)
}

func (r *readOnly) Persist(ctx context.Context, kind Kind, records []Record) error {
	return r.overlay.Persist(ctx, kind, records)
}

func cloneAll(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		out = append(out, r.Clone())
	}

	return out
}

package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
)

// FileStore keeps all records in one JSON array document.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Load returns every stored record. A missing file yields no records.
func (s *FileStore) Load(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Upsert rewrites the whole document with rec replacing any record of the
// same name. An unreadable document is replaced.
func (s *FileStore) Upsert(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read()
	if err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("discarding unreadable tool store")
		recs = nil
	}
	return s.write(upsert(recs, rec))
}

// Ping reports whether the directory holding the document is usable.
func (s *FileStore) Ping(_ context.Context) error {
	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if err != nil {
		return errors.Wrap(err, "stat tool store directory")
	}
	if !info.IsDir() {
		return errors.Newf("%s is not a directory", dir)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) read() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read tool store")
	}
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, errors.Wrapf(err, "decode tool store %s", s.path)
	}
	return recs, nil
}

func (s *FileStore) write(recs []Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "create tool store directory")
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode tool store")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tools-*.json")
	if err != nil {
		return errors.Wrap(err, "create temp tool store")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write tool store")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close tool store")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.path), "replace tool store")
}

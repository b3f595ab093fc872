package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// File keeps entries in a single human-readable JSON document so that
// separate CLI invocations share the cached list.
// Writers in different processes are not coordinated; last write wins.
type File struct {
	path string
	mu   sync.Mutex
}

type fileEntry struct {
	Data      json.RawMessage `json:"data"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.load()
	if err != nil {
		return nil, false, err
	}
	e, ok := entries[key]
	if !ok {
		return nil, false, nil
	}
	if e.ExpiresAt != nil && expired(*e.ExpiresAt) {
		return nil, false, nil
	}
	return []byte(e.Data), true, nil
}

func (f *File) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if !json.Valid(value) {
		return errors.Errorf("file cache: value for %q is not JSON", key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.load()
	if err != nil {
		return err
	}
	e := fileEntry{Data: append(json.RawMessage(nil), value...)}
	if at := expiry(ttl); !at.IsZero() {
		e.ExpiresAt = &at
	}
	entries[key] = e
	return f.save(entries)
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return f.save(entries)
}

func (f *File) load() (map[string]fileEntry, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]fileEntry{}, nil
		}
		return nil, errors.Wrap(err, "read file")
	}
	entries := map[string]fileEntry{}
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, errors.Wrapf(err, "json unmarshal %s", f.path)
	}
	return entries, nil
}

func (f *File) save(entries map[string]fileEntry) error {
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "json marshal")
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "mkdir")
		}
	}
	if err := os.WriteFile(f.path, b, 0o644); err != nil {
		return errors.Wrap(err, "write file")
	}
	return nil
}

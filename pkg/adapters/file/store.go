// Package file stores ViewModel States as files in a local directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/spindle/pkg/domain"
	"github.com/aretw0/spindle/pkg/persistence"
	"github.com/aretw0/spindle/pkg/ports"
)

// DefaultDir is used when New is given an empty directory.
var DefaultDir = filepath.Join(".spindle", "states")

const ext = ".json"

// Store implements ports.StateStore using the local filesystem, one file per ID.
// Writes are atomic: a State is written to a temp file, synced and renamed over
// the previous one.
type Store[S any] struct {
	dir   string
	codec ports.Codec
}

// Option configures a Store.
type Option func(*options)

type options struct {
	codec ports.Codec
}

// WithCodec sets how States are encoded. JSON is the default.
func WithCodec(codec ports.Codec) Option {
	return func(o *options) {
		o.codec = codec
	}
}

// New creates a Store rooted at dir. The directory is created on the first Save.
func New[S any](dir string, opts ...Option) *Store[S] {
	o := options{codec: persistence.JSON}
	for _, opt := range opts {
		opt(&o)
	}
	if dir == "" {
		dir = DefaultDir
	}
	return &Store[S]{dir: dir, codec: o.codec}
}

// Dir returns the directory the Store writes to.
func (s *Store[S]) Dir() string {
	return s.dir
}

func (s *Store[S]) path(id string) (string, error) {
	if id == "" {
		return "", errors.New("id cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid id %q", id)
	}
	return filepath.Join(s.dir, id+ext), nil
}

// Save persists the state atomically.
func (s *Store[S]) Save(ctx context.Context, id string, state S) error {
	dest, err := s.path(id)
	if err != nil {
		return err
	}
	data, err := s.codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure state directory: %w", err)
	}

	// Same directory, so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(s.dir, "."+id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Load retrieves the state saved under id.
func (s *Store[S]) Load(ctx context.Context, id string) (S, error) {
	var state S
	path, err := s.path(id)
	if err != nil {
		return state, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return state, domain.ErrSnapshotNotFound
		}
		return state, fmt.Errorf("failed to read state file: %w", err)
	}
	if err := s.codec.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return state, nil
}

// Delete removes the state file.
func (s *Store[S]) Delete(ctx context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete state file: %w", err)
	}
	return nil
}

// List returns every stored ID in lexical order.
func (s *Store[S]) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list states: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ext {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	sort.Strings(ids)
	return ids, nil
}

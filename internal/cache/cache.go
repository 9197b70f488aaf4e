package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/moby/locker"
	"github.com/opencontainers/go-digest"
)

var ErrCache = errors.New("cache error")

// A cached build layer.
type Layer struct {
	Fingerprint digest.Digest `json:"fingerprint"`      // Content-addressed identity of this layer.
	Parent      digest.Digest `json:"parent,omitempty"` // Fingerprint of the parent layer, empty for the seed.
	ImageTag    string        `json:"imageTag"`         // Containerd image tag holding the committed snapshot.
	Step        string        `json:"step"`             // Human-readable summary of the producing step.
	CreatedAt   time.Time     `json:"createdAt"`        // When the layer was committed.
}

// Maps fingerprints to committed layers.
//
// Safe for concurrent use. Lookups take a read lock; commits serialize
// per fingerprint so the same layer is never built twice.
type Store struct {
	mu     sync.RWMutex
	layers map[digest.Digest]Layer
	locks  *locker.Locker // Per-fingerprint commit locks.
	path   string         // Index file path, empty for a purely in-memory store.
}

// Opens a layer store backed by the index file at path.
//
// A missing index file is not an error; the store starts empty and the
// file is created on the first commit. An empty path yields an in-memory
// store that does not persist.
func Open(path string) (*Store, error) {
	s := &Store{
		layers: make(map[digest.Digest]Layer),
		locks:  locker.New(),
		path:   path,
	}

	if path != "" {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCache, err)
		}
	}

	return s, nil
}

// Returns the layer for a fingerprint, if one has been committed.
func (s *Store) Lookup(fp digest.Digest) (Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	layer, ok := s.layers[fp]
	return layer, ok
}

// Returns the number of committed layers.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.layers)
}

// Returns all committed layers, oldest first.
func (s *Store) List() []Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	layers := make([]Layer, 0, len(s.layers))
	for _, l := range s.layers {
		layers = append(layers, l)
	}

	sort.Slice(layers, func(i, j int) bool {
		return layers[i].CreatedAt.Before(layers[j].CreatedAt)
	})

	return layers
}

// Commits the layer for a fingerprint, producing it if absent.
//
// The produce function runs at most once per fingerprint across all
// concurrent builds: the first caller holds the fingerprint's commit lock
// while producing, and later callers block on the lock and then reuse the
// stored layer. If produce fails, nothing is stored and the fingerprint
// may be retried by a later build. The returned layer's fingerprint is
// forced to fp regardless of what produce set.
func (s *Store) Commit(ctx context.Context, fp digest.Digest, produce func(context.Context) (Layer, error)) (Layer, error) {
	s.locks.Lock(fp.String())
	defer s.locks.Unlock(fp.String())

	// A concurrent build may have committed while we waited for the lock.
	if layer, ok := s.Lookup(fp); ok {
		slog.Debug("layer already committed", "fingerprint", fp.String(), "step", layer.Step)
		return layer, nil
	}

	layer, err := produce(ctx)
	if err != nil {
		return Layer{}, err
	}

	layer.Fingerprint = fp
	if layer.CreatedAt.IsZero() {
		layer.CreatedAt = time.Now().UTC()
	}

	s.insert(layer)

	slog.Debug("layer committed", "fingerprint", fp.String(), "step", layer.Step)
	return layer, nil
}

// Inserts a layer and persists the index.
//
// Index write failures are logged rather than failing the build; the
// layer content already exists in containerd and the index is rebuilt on
// the next successful write.
func (s *Store) insert(layer Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.layers[layer.Fingerprint] = layer

	if s.path != "" {
		if err := s.save(); err != nil {
			slog.Warn("failed to persist cache index", "path", s.path, "error", err)
		}
	}
}

package cache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/stratahq/stratad/internal/paths"
)

// On-disk shape of the cache index.
type index struct {
	Layers []Layer `json:"layers"`
}

// Loads the index file into the store. Caller holds no locks; only used
// during Open before the store is shared.
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		return err
	}

	for _, layer := range idx.Layers {
		s.layers[layer.Fingerprint] = layer
	}

	return nil
}

// Writes the index file. Caller holds s.mu.
//
// The file is written to a temporary name and renamed into place so a
// crash mid-write never leaves a truncated index.
func (s *Store) save() error {
	idx := index{Layers: make([]Layer, 0, len(s.layers))}
	for _, layer := range s.layers {
		idx.Layers = append(idx.Layers, layer)
	}

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), paths.DefaultDirMode); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, paths.DefaultFileMode); err != nil {
		return err
	}

	return os.Rename(tmp, s.path)
}

package volume

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/stratahq/stratad/internal/paths"
)

var ErrVolume = errors.New("volume error")

// Resolves volume names to host directories.
type Manager struct {
	root string // Directory under which volume directories are created.
}

// Creates a manager rooted at dir. An empty dir uses the default data
// location.
func NewManager(dir string) *Manager {
	if dir == "" {
		dir = paths.Volumes()
	}
	return &Manager{root: dir}
}

// Resolves a named volume to its host directory, creating it if missing.
//
// Safe to call repeatedly and from concurrent builds; every call for the
// same name returns the same path.
func (m *Manager) Resolve(name string) (string, error) {
	if err := validName(name); err != nil {
		return "", fmt.Errorf("%w: %w", ErrVolume, err)
	}

	dir := filepath.Join(m.root, name)
	if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
		return "", fmt.Errorf("%w: create %q: %w", ErrVolume, name, err)
	}

	slog.Debug("volume resolved", "name", name, "path", dir)
	return dir, nil
}

// Returns an OCI bind mount attaching the named volume at point.
func (m *Manager) Mount(name, point string) (specs.Mount, error) {
	dir, err := m.Resolve(name)
	if err != nil {
		return specs.Mount{}, err
	}

	return specs.Mount{
		Destination: point,
		Type:        "bind",
		Source:      dir,
		Options:     []string{"rbind", "rw"},
	}, nil
}

// Rejects names that would escape the volume root or collide with path
// syntax.
func validName(name string) error {
	if name == "" {
		return fmt.Errorf("blank volume name")
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return fmt.Errorf("invalid volume name %q", name)
	}
	return nil
}

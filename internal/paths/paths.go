package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	daemonName = "stratad"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Path to the directory for runtime files (sockets, PIDs).
//
//	Linux:   $XDG_RUNTIME_DIR/stratad or /run/user/<uid>/stratad
//	macOS:   ~/Library/Caches/stratad/run
func Runtime() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, daemonName)
	}
	return filepath.Join(xdg.CacheHome, daemonName, "run")
}

// Default path to the Unix domain socket for CLI-to-daemon communication.
//
//	Linux:   $XDG_RUNTIME_DIR/stratad/stratad.sock
func Socket() string {
	return filepath.Join(Runtime(), daemonName+".sock")
}

// Default path to the PID file.
//
//	Linux:   $XDG_RUNTIME_DIR/stratad/stratad.pid
func PIDFile() string {
	return filepath.Join(Runtime(), daemonName+".pid")
}

// Path to the directory for persistent daemon data.
//
//	Linux:   ~/.local/share/stratad
func Data() string {
	return filepath.Join(xdg.DataHome, daemonName)
}

// Path to the directory holding named build volumes.
//
// Each volume is a subdirectory created on first resolution and never
// removed by the daemon.
func Volumes() string {
	return filepath.Join(Data(), "volumes")
}

// Default path to the layer cache index file.
func CacheIndex() string {
	return filepath.Join(Data(), "cache", "layers.json")
}

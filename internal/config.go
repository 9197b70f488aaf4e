package internal

import (
	"strconv"
	"sync/atomic"
)

// Logging modes resolved from linker flags at startup. The CLI layer
// combines them with runtime flags when configuring the logger.
var (
	quietMode   atomic.Bool
	debugMode   atomic.Bool
	verboseMode atomic.Bool
)

func init() {
	quietMode.Store(parseModeFlag(rawQuiet))
	debugMode.Store(parseModeFlag(rawDebug))
	verboseMode.Store(parseModeFlag(rawVerbose))
}

// Parses a raw ldflags boolean. Unset or malformed values read as false.
func parseModeFlag(raw string) bool {
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}

// Returns true if quiet mode was baked into the build.
func IsQuiet() bool {
	return quietMode.Load()
}

// Returns true if debug mode was baked into the build.
func IsDebug() bool {
	return debugMode.Load()
}

// Returns true if verbose logging was baked into the build.
func IsVerbose() bool {
	return verboseMode.Load()
}

// Package paths centralizes filesystem locations used by the stratad
// daemon: the runtime directory for the socket and PID file, and the
// data directory for named volumes and the layer cache index.
package paths

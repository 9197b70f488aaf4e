// Package volume resolves named build volumes.
//
// A volume is a host directory shared read-write across builds and
// mounted into build containers by name. Resolution is idempotent:
// the directory is created on first use and reused afterwards, and the
// daemon never deletes it. Concurrent builds mounting the same volume
// see the same contents; synchronizing writes is the recipes' concern.
package volume

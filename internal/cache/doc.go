// Package cache stores build layers keyed by fingerprint.
//
// A layer records the committed result of applying one step on top of a
// parent layer: its fingerprint, its parent's fingerprint, and the
// containerd image tag holding the snapshot content. The store guarantees
// at most one layer per fingerprint. Commits are serialized per
// fingerprint: when concurrent builds reach the same uncached step, one
// producer runs and the others block until it commits, then reuse its
// layer. Committing an already-present fingerprint performs no work and
// returns the stored layer.
//
// Layer metadata is persisted as a JSON index file so cached layers
// survive daemon restarts. The store never evicts; retention is an
// external concern.
package cache

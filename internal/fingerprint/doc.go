// Package fingerprint computes content-addressed identities for build
// steps.
//
// Fingerprints form a chain: each step's identity is derived from its
// parent's fingerprint and the step's normalized content, so two recipes
// that share a prefix of steps produce identical fingerprints for that
// prefix and can share cached layers. The chain is seeded from the base
// image reference, which is treated as an opaque string.
//
// Normalization is deliberately narrow. Environment maps are hashed with
// sorted keys, since an env merge is declared order-insensitive. Run
// commands are hashed by their exact text plus the declared resource
// requirement; no dedup or reordering beyond exact match is safe for
// shell commands. Copy steps hash the digest of the source file tree so
// host-side edits invalidate the layer. Per-step timeouts are execution
// configuration, not content, and do not participate in the hash.
package fingerprint

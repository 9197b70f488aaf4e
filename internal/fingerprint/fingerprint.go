package fingerprint

import (
	"path"
	"sort"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/stratahq/stratad/internal/recipe"
)

// Field separator in the pre-hash encoding. Recipe validation rejects
// NUL in every step field and "=" in env keys, so encoded fields can
// never run into each other.
const sep = "\x00"

// Returns the root fingerprint for a recipe, derived from the opaque
// base image reference.
func Seed(base string) digest.Digest {
	return digest.Canonical.FromString("base" + sep + base)
}

// Derives a step's fingerprint from its parent and normalized content.
//
// Pure and deterministic: identical (parent, step, content) triples always
// produce the same digest. content carries the source tree digest for copy
// steps and is empty otherwise.
func Derive(parent digest.Digest, step recipe.Step, content digest.Digest) digest.Digest {
	var b strings.Builder

	b.WriteString(parent.String())
	b.WriteString(sep)
	encodeStep(&b, step, content)

	return digest.Canonical.FromString(b.String())
}

// Encodes a step's cache-relevant fields in a canonical order.
func encodeStep(b *strings.Builder, step recipe.Step, content digest.Digest) {
	if step.Run != "" {
		b.WriteString("run" + sep + step.Run + sep + step.Resource + sep)
	}

	if step.Copy != "" {
		b.WriteString("copy" + sep + step.Copy + sep + content.String() + sep)
	}

	if step.Workdir != "" {
		b.WriteString("workdir" + sep + path.Clean(step.Workdir) + sep)
	}

	if step.Shell != "" {
		b.WriteString("shell" + sep + step.Shell + sep)
	}

	if step.Mount != nil {
		b.WriteString("mount" + sep + path.Clean(step.Mount.Point) + sep + step.Mount.Volume + sep)
	}

	if len(step.Env) > 0 {
		keys := make([]string, 0, len(step.Env))
		for k := range step.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("env" + sep)
		for _, k := range keys {
			b.WriteString(k + "=" + step.Env[k] + sep)
		}
	}
}

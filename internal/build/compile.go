package build

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/stratahq/stratad/internal/cache"
	"github.com/stratahq/stratad/internal/fingerprint"
	"github.com/stratahq/stratad/internal/recipe"
)

// One compiled plan entry: a step with its position in the fingerprint
// chain and an advisory cache decision.
type Entry struct {
	Index       int           // 1-based step position in the recipe.
	Step        recipe.Step   // The step to apply.
	Parent      digest.Digest // Fingerprint of the preceding layer.
	Fingerprint digest.Digest // Fingerprint of the layer this step produces.
	Content     digest.Digest // Source tree digest for copy steps, empty otherwise.
	Cached      bool          // Whether a layer existed at compile time. Advisory: re-checked under the commit lock during execution.
}

// A compiled, ordered execution plan. Transient; recomputed per build.
type Plan struct {
	Recipe  *recipe.Recipe // The validated source recipe.
	Root    string         // Build context for resolving copy sources.
	Seed    digest.Digest  // Root fingerprint derived from the base image.
	Entries []Entry        // Plan entries in execution order.
}

// Returns the fingerprint of the plan's final layer.
func (p *Plan) Final() digest.Digest {
	if len(p.Entries) == 0 {
		return p.Seed
	}
	return p.Entries[len(p.Entries)-1].Fingerprint
}

// Compiles a recipe into an execution plan.
//
// Validates the recipe, then walks the step list in declared order,
// deriving each step's fingerprint from its parent and normalized
// content. Copy steps hash their source tree from the build context at
// root, so a missing source fails compilation. The store is consulted to
// annotate entries with advisory hit/miss decisions; execution makes the
// authoritative call under the per-fingerprint commit lock.
func Compile(r *recipe.Recipe, root string, store *cache.Store) (*Plan, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	plan := &Plan{
		Recipe:  r,
		Root:    root,
		Seed:    fingerprint.Seed(r.Base),
		Entries: make([]Entry, 0, len(r.Steps)),
	}

	parent := plan.Seed
	for i, step := range r.Steps {
		var content digest.Digest
		if step.Copy != "" {
			var err error
			content, err = copyContent(step.Copy, root)
			if err != nil {
				return nil, fmt.Errorf("%w: step %d: %w", ErrBuild, i+1, err)
			}
		}

		fp := fingerprint.Derive(parent, step, content)

		entry := Entry{
			Index:       i + 1,
			Step:        step,
			Parent:      parent,
			Fingerprint: fp,
			Content:     content,
		}
		if store != nil {
			_, entry.Cached = store.Lookup(fp)
		}

		plan.Entries = append(plan.Entries, entry)
		parent = fp
	}

	return plan, nil
}

// Hashes the source tree of a copy step.
func copyContent(copyStr, root string) (digest.Digest, error) {
	src := strings.Fields(copyStr)[0]
	if !filepath.IsAbs(src) {
		src = filepath.Join(root, src)
	}

	content, err := fingerprint.Tree(src)
	if err != nil {
		return "", fmt.Errorf("%w: hash copy source: %w", ErrCopy, err)
	}
	return content, nil
}

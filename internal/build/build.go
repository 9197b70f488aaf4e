package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/stratahq/stratad/internal/cache"
	"github.com/stratahq/stratad/internal/paths"
	"github.com/stratahq/stratad/internal/recipe"
)

// Prefix for image tags holding committed layers.
const layerTagPrefix = "strata/layer:"

// Controls plan execution.
type Options struct {
	Plan   *Plan  // Compiled plan to execute.
	Name   string // Build name, used as a prefix for container IDs.
	Output string // Directory for the exported image. Empty skips export.
}

// Returned after successful plan execution.
type Result struct {
	Output      string        // Path of the exported OCI archive, empty when export was skipped.
	Fingerprint digest.Digest // Fingerprint of the final layer.
	Executed    int           // Steps that ran against the runtime.
	Reused      int           // Steps satisfied from the layer cache.
}

// Holds shared state while executing one plan.
type builder struct {
	exec    Executor
	store   *cache.Store
	volumes VolumeResolver
	name    string
	state   *stepState
	current cache.Layer // Layer the next step builds on.
	pulled  bool        // Whether the base image has been ensured.
}

// Executes a compiled plan against the layer cache and runtime.
//
// Steps execute strictly sequentially in plan order. Every declared
// volume is resolved (created if missing) before the first step, so a
// volume failure surfaces before any execution. On a cache hit the
// current layer advances with no side effects; on a miss the step runs
// in a build container and its delta is committed under the step's
// fingerprint. A failure aborts the remaining steps, reports the step
// index and summary via [StepError], and leaves every previously
// committed layer cached for the next attempt.
func Run(ctx context.Context, exec Executor, store *cache.Store, volumes VolumeResolver, opts Options) (*Result, error) {
	plan := opts.Plan
	name := opts.Name
	if name == "" {
		name = "build"
	}

	slog.Info("executing plan",
		"name", name,
		"base", plan.Recipe.Base,
		"steps", len(plan.Entries),
	)

	// Resolve-or-create every declared volume up front.
	for _, vol := range plan.Recipe.Volumes {
		if _, err := volumes.Resolve(vol); err != nil {
			return nil, err
		}
	}

	b := &builder{
		exec:    exec,
		store:   store,
		volumes: volumes,
		name:    name,
		state:   newStepState(),
		current: cache.Layer{Fingerprint: plan.Seed, ImageTag: plan.Recipe.Base},
	}

	result := &Result{}
	for i := range plan.Entries {
		entry := &plan.Entries[i]

		ran, err := b.step(ctx, plan, entry)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBuild, &StepError{
				Index: entry.Index,
				Step:  entry.Step.Summary(),
				Err:   err,
			})
		}

		entry.Cached = !ran
		if ran {
			result.Executed++
		} else {
			result.Reused++
		}
	}

	result.Fingerprint = b.current.Fingerprint

	if opts.Output != "" {
		if err := os.MkdirAll(opts.Output, paths.DefaultDirMode); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
		}
		if err := b.exec.EnsureImage(ctx, b.current.ImageTag); err != nil {
			return nil, err
		}
		path, err := b.exec.Export(ctx, b.current.ImageTag, opts.Output)
		if err != nil {
			return nil, err
		}
		result.Output = path
	}

	slog.Info("plan complete",
		"name", name,
		"executed", result.Executed,
		"reused", result.Reused,
		"fingerprint", result.Fingerprint.String(),
	)

	return result, nil
}

// Advances the build by one plan entry. Returns whether the step was
// executed (as opposed to reused from the cache).
func (b *builder) step(ctx context.Context, plan *Plan, entry *Entry) (bool, error) {
	ran := false

	layer, err := b.store.Commit(ctx, entry.Fingerprint, func(ctx context.Context) (cache.Layer, error) {
		ran = true
		return b.produce(ctx, plan, entry)
	})
	if err != nil {
		return false, err
	}

	if !ran {
		slog.Debug("layer reused", "step", entry.Index, "fingerprint", entry.Fingerprint.String())
	}

	b.current = layer
	return ran, b.advanceState(entry.Step)
}

// Folds a step's modifiers into the persistent state.
//
// Runs on both hit and miss paths: the state is per-build, in memory,
// and later steps depend on it regardless of where their layer came
// from.
func (b *builder) advanceState(step recipe.Step) error {
	if step.Mount != nil {
		m, err := b.volumes.Mount(step.Mount.Volume, step.Mount.Point)
		if err != nil {
			return err
		}
		b.state.addMount(m)
	}

	if !step.IsOperation() {
		b.state.apply(step)
	}

	return nil
}

// Materializes a cache-miss step as a new layer.
//
// Modifier steps carry no filesystem delta; their layer aliases the
// parent's image and no container is started. Operation steps run inside
// a fresh build container seeded from the current layer and commit their
// snapshot diff under the step's fingerprint.
func (b *builder) produce(ctx context.Context, plan *Plan, entry *Entry) (cache.Layer, error) {
	step := entry.Step

	if !step.IsOperation() {
		return cache.Layer{
			Parent:   b.current.Fingerprint,
			ImageTag: b.current.ImageTag,
			Step:     step.Summary(),
		}, nil
	}

	if err := b.ensureBase(ctx); err != nil {
		return cache.Layer{}, err
	}

	ctr, err := b.exec.StartContainer(ctx, b.current.ImageTag, b.containerID(entry), b.state.mounts, step.Resource)
	if err != nil {
		return cache.Layer{}, err
	}
	defer ctr.Destroy(ctx)

	if err := b.executeOperation(ctx, ctr, plan, entry); err != nil {
		return cache.Layer{}, err
	}

	tag := layerTag(entry.Fingerprint)
	if err := ctr.Commit(ctx, tag); err != nil {
		return cache.Layer{}, err
	}

	return cache.Layer{
		Parent:   b.current.Fingerprint,
		ImageTag: tag,
		Step:     step.Summary(),
	}, nil
}

// Runs a single operation step inside its build container.
//
// Step-level modifiers override the persistent state for this operation
// only. A per-step timeout, when configured, bounds the whole operation
// and aborts it without committing on expiry.
func (b *builder) executeOperation(ctx context.Context, ctr Container, plan *Plan, entry *Entry) error {
	step := entry.Step
	resolved := b.state.resolve(step)

	if step.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(step.Timeout)*time.Second)
		defer cancel()
	}

	if resolved.workdir != "" {
		if err := ctr.MkdirAll(ctx, resolved.workdir); err != nil {
			return err
		}
	}

	switch {
	case step.Run != "":
		slog.Debug("run", "command", step.Run, "shell", resolved.shell, "resource", step.Resource)
		result, err := ctr.Exec(ctx, resolved.shell, step.Run, resolved.environ(), resolved.workdir)
		if err != nil {
			return err
		}
		if result.ExitCode != 0 {
			return fmt.Errorf("%w: exit code %d: %s", ErrCommandFailed, result.ExitCode, result.Stderr)
		}

	case step.Copy != "":
		if err := executeCopy(ctx, ctr, step.Copy, resolved.workdir, plan.Root); err != nil {
			return err
		}
	}

	return nil
}

// Lazily ensures the recipe's base image is present before the first
// container starts. Fully cached builds never touch the registry.
func (b *builder) ensureBase(ctx context.Context) error {
	if b.pulled {
		return nil
	}
	if err := b.exec.EnsureImage(ctx, b.current.ImageTag); err != nil {
		return err
	}
	b.pulled = true
	return nil
}

// Returns a unique container ID for a plan entry, scoped to this build
// and fingerprint so concurrent builds never collide.
func (b *builder) containerID(entry *Entry) string {
	return fmt.Sprintf("%s-step-%d-%s", b.name, entry.Index, entry.Fingerprint.Encoded()[:12])
}

// Returns the image tag under which a layer fingerprint is committed.
func layerTag(fp digest.Digest) string {
	return layerTagPrefix + fp.Encoded()
}

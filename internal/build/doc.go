// Package build compiles recipes into fingerprinted plans and executes
// them against the layer cache and a container runtime.
//
// Compilation walks the step list in declared order, threading a
// fingerprint chain from the base image reference through every step.
// Steps are never reordered: later steps depend on the environment,
// working directory, and filesystem state left by earlier ones.
//
// Execution walks the plan sequentially. A cache hit advances the
// current layer without side effects. A cache miss starts a build
// container from the current layer, applies the step, and commits the
// filesystem delta as a new cached layer keyed by the step's
// fingerprint. Modifier steps (env, workdir, shell, mount) carry no
// filesystem delta; their layers alias the parent's image so the chain
// stays uniform and prefix-shareable without touching the runtime.
//
// A step failure aborts the remainder of the plan and commits nothing
// for the failed step. Layers committed before the failure stay cached,
// so rerunning the build replays only the steps after the last good
// layer.
//
// Example usage:
//
//	plan, err := build.Compile(rec, root, store)
//	if err != nil {
//	    return err
//	}
//	result, err := build.Run(ctx, build.NewRuntimeExecutor(rt), store, volumes, build.Options{
//	    Plan:   plan,
//	    Name:   "my-benchmark",
//	    Output: "dist",
//	})
//	if err != nil {
//	    return err
//	}
package build

package recipe

import (
	"fmt"
	"strings"
)

// A named volume mounted into build containers at a fixed path.
type Mount struct {
	Point  string `json:"point"`  // Absolute path inside the container.
	Volume string `json:"volume"` // Name of a declared volume.
}

// One build instruction.
//
// Exactly one of Run or Copy may be set (an operation step). Env, Workdir,
// Shell, and Mount are modifiers: standalone they mutate the accumulated
// build state permanently, while Workdir, Shell, and Env on an operation
// step scope the override to that operation only. Resource and Timeout are
// only meaningful on run steps.
type Step struct {
	Env      map[string]string `json:"env,omitempty"`      // Environment variables to set or override.
	Run      string            `json:"run,omitempty"`      // Shell command to execute.
	Copy     string            `json:"copy,omitempty"`     // Host copy, "src dest".
	Workdir  string            `json:"workdir,omitempty"`  // Working directory.
	Shell    string            `json:"shell,omitempty"`    // Shell used for run steps.
	Mount    *Mount            `json:"mount,omitempty"`    // Volume mount declaration.
	Resource string            `json:"resource,omitempty"` // Capability required by a run step (e.g. "gpu").
	Timeout  int               `json:"timeout,omitempty"`  // Per-step timeout in seconds, 0 means none.
}

// An ordered build recipe.
type Recipe struct {
	Base    string   `json:"base"`              // Base image reference (opaque to the engine).
	Volumes []string `json:"volumes,omitempty"` // Volume names steps may mount.
	Steps   []Step   `json:"steps"`             // Steps in execution order.
}

// Reports whether the step performs an operation rather than only
// mutating state.
func (s Step) IsOperation() bool {
	return s.Run != "" || s.Copy != ""
}

// Returns a short human-readable summary of the step, used in logs and
// cache records.
func (s Step) Summary() string {
	switch {
	case s.Run != "":
		return "run " + truncate(s.Run, 60)
	case s.Copy != "":
		return "copy " + s.Copy
	case s.Mount != nil:
		return fmt.Sprintf("mount %s at %s", s.Mount.Volume, s.Mount.Point)
	case s.Workdir != "":
		return "workdir " + s.Workdir
	case s.Shell != "":
		return "shell " + s.Shell
	case len(s.Env) > 0:
		return fmt.Sprintf("env (%d vars)", len(s.Env))
	default:
		return "(empty)"
	}
}

// Validates a single step. hasWorkdir reports whether an earlier
// standalone workdir step is in effect.
func (s Step) validate(volumes map[string]bool, hasWorkdir bool) error {
	if s.Run != "" && s.Copy != "" {
		return fmt.Errorf("run and copy are mutually exclusive")
	}

	if s.Run != "" && strings.TrimSpace(s.Run) == "" {
		return fmt.Errorf("run command is blank")
	}

	if s.Copy != "" {
		parts := strings.Fields(s.Copy)
		if len(parts) != 2 {
			return fmt.Errorf("copy must be %q, got %q", "src dest", s.Copy)
		}
		if !strings.HasPrefix(parts[1], "/") && s.Workdir == "" && !hasWorkdir {
			return fmt.Errorf("relative copy dest %q requires a working directory", parts[1])
		}
	}

	if s.Mount != nil {
		if s.Mount.Point == "" || s.Mount.Volume == "" {
			return fmt.Errorf("mount requires both point and volume")
		}
		if !strings.HasPrefix(s.Mount.Point, "/") {
			return fmt.Errorf("mount point %q is not absolute", s.Mount.Point)
		}
		if !volumes[s.Mount.Volume] {
			return fmt.Errorf("mount references undeclared volume %q", s.Mount.Volume)
		}
	}

	if s.Resource != "" && s.Run == "" {
		return fmt.Errorf("resource %q declared on a non-run step", s.Resource)
	}
	if s.Timeout != 0 && s.Run == "" {
		return fmt.Errorf("timeout declared on a non-run step")
	}
	if s.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}

	if !s.IsOperation() && s.Mount == nil && s.Workdir == "" && s.Shell == "" && len(s.Env) == 0 {
		return fmt.Errorf("step has no operation and no modifier")
	}

	return s.validateEncoding()
}

// Rejects bytes that would make the step's fingerprint encoding
// ambiguous: NUL delimits encoded fields and "=" separates env keys
// from values, so two distinct steps containing them could hash
// identically and wrongly share a cached layer.
func (s Step) validateEncoding() error {
	fields := [][2]string{
		{"run", s.Run},
		{"copy", s.Copy},
		{"workdir", s.Workdir},
		{"shell", s.Shell},
		{"resource", s.Resource},
	}
	if s.Mount != nil {
		fields = append(fields, [2]string{"mount point", s.Mount.Point}, [2]string{"mount volume", s.Mount.Volume})
	}

	for _, f := range fields {
		if strings.ContainsRune(f[1], 0) {
			return fmt.Errorf("%s contains a NUL byte", f[0])
		}
	}

	for k, v := range s.Env {
		if k == "" {
			return fmt.Errorf("blank env key")
		}
		if strings.ContainsAny(k, "=\x00") {
			return fmt.Errorf("invalid env key %q", k)
		}
		if strings.ContainsRune(v, 0) {
			return fmt.Errorf("env value for %q contains a NUL byte", k)
		}
	}

	return nil
}

// Validates the recipe.
//
// Checks that the recipe is non-empty, has a base image, and that every
// step is well-formed, including that mount declarations reference a
// declared volume. All failures wrap [ErrValidation] and surface before
// fingerprinting or execution.
func (r *Recipe) Validate() error {
	if r == nil || len(r.Steps) == 0 {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyRecipe)
	}

	if strings.TrimSpace(r.Base) == "" {
		return fmt.Errorf("%w: missing base image reference", ErrValidation)
	}

	declared := make(map[string]bool, len(r.Volumes))
	for _, v := range r.Volumes {
		if v == "" {
			return fmt.Errorf("%w: blank volume name", ErrValidation)
		}
		declared[v] = true
	}

	hasWorkdir := false
	for i, step := range r.Steps {
		if err := step.validate(declared, hasWorkdir); err != nil {
			return fmt.Errorf("%w: step %d: %w", ErrValidation, i+1, err)
		}
		if !step.IsOperation() && step.Workdir != "" {
			hasWorkdir = true
		}
	}

	return nil
}

// Shortens a string for display.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package recipe

import (
	"errors"
	"testing"
)

func TestValidateEmptyRecipe(t *testing.T) {
	var r *Recipe
	if err := r.Validate(); !errors.Is(err, ErrEmptyRecipe) {
		t.Fatalf("nil recipe error = %v, want ErrEmptyRecipe", err)
	}

	empty := &Recipe{Base: "ubuntu:24.04"}
	if err := empty.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty recipe error = %v, want ErrValidation", err)
	}
}

func TestValidateMissingBase(t *testing.T) {
	r := &Recipe{Steps: []Step{{Run: "true"}}}
	if err := r.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing base error = %v, want ErrValidation", err)
	}
}

func TestValidateUndeclaredVolume(t *testing.T) {
	r := &Recipe{
		Base:    "ubuntu:24.04",
		Volumes: []string{"data"},
		Steps: []Step{
			{Mount: &Mount{Point: "/data", Volume: "other"}},
		},
	}
	if err := r.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("undeclared volume error = %v, want ErrValidation", err)
	}

	r.Steps[0].Mount.Volume = "data"
	if err := r.Validate(); err != nil {
		t.Fatalf("declared volume rejected: %v", err)
	}
}

func TestValidateSteps(t *testing.T) {
	tests := []struct {
		name string
		step Step
		ok   bool
	}{
		{"run", Step{Run: "apt-get update"}, true},
		{"blank run", Step{Run: "   "}, false},
		{"run and copy", Step{Run: "true", Copy: "a b"}, false},
		{"copy", Step{Copy: "src /dest"}, true},
		{"copy one token", Step{Copy: "src"}, false},
		{"env", Step{Env: map[string]string{"A": "1"}}, true},
		{"workdir", Step{Workdir: "/app"}, true},
		{"empty step", Step{}, false},
		{"resource on run", Step{Run: "nvidia-smi", Resource: "gpu"}, true},
		{"resource without run", Step{Workdir: "/x", Resource: "gpu"}, false},
		{"timeout without run", Step{Workdir: "/x", Timeout: 5}, false},
		{"negative timeout", Step{Run: "true", Timeout: -1}, false},
		{"relative mount point", Step{Mount: &Mount{Point: "data", Volume: "data"}}, false},
		{"relative copy dest without workdir", Step{Copy: "src dest"}, false},
		{"relative copy dest with step workdir", Step{Copy: "src dest", Workdir: "/srv"}, true},
		{"blank env key", Step{Env: map[string]string{"": "1"}}, false},
		{"env key with equals", Step{Env: map[string]string{"A=1": "x"}}, false},
		{"env value with nul", Step{Env: map[string]string{"A": "1\x00B=2"}}, false},
		{"run with nul", Step{Run: "echo hi\x00true"}, false},
		{"workdir with nul", Step{Workdir: "/app\x00"}, false},
		{"mount volume with nul", Step{Mount: &Mount{Point: "/data", Volume: "data\x00"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Recipe{
				Base:    "ubuntu:24.04",
				Volumes: []string{"data"},
				Steps:   []Step{tt.step},
			}
			err := r.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestValidateRelativeCopyAfterWorkdirStep(t *testing.T) {
	r := &Recipe{
		Base: "ubuntu:24.04",
		Steps: []Step{
			{Workdir: "/srv"},
			{Copy: "app.py app.py"},
		},
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("copy after workdir step rejected: %v", err)
	}

	// Without the preceding workdir step the same copy is invalid.
	r.Steps = r.Steps[1:]
	if err := r.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestIsOperation(t *testing.T) {
	if (Step{Workdir: "/x"}).IsOperation() {
		t.Fatal("workdir step reported as operation")
	}
	if !(Step{Run: "true"}).IsOperation() {
		t.Fatal("run step not reported as operation")
	}
	if !(Step{Copy: "a b"}).IsOperation() {
		t.Fatal("copy step not reported as operation")
	}
}

func TestSummary(t *testing.T) {
	s := Step{Run: "echo hi"}
	if s.Summary() != "run echo hi" {
		t.Fatalf("summary = %q", s.Summary())
	}

	long := Step{Run: string(make([]byte, 200))}
	if len(long.Summary()) > 70 {
		t.Fatalf("long summary not truncated: %d chars", len(long.Summary()))
	}
}

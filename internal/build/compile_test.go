package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stratahq/stratad/internal/cache"
	"github.com/stratahq/stratad/internal/recipe"
)

func TestCompileFingerprintChain(t *testing.T) {
	r := benchRecipe()

	plan, err := Compile(r, t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(plan.Entries) != len(r.Steps) {
		t.Fatalf("entries = %d, want %d", len(plan.Entries), len(r.Steps))
	}

	parent := plan.Seed
	for _, entry := range plan.Entries {
		if entry.Parent != parent {
			t.Fatalf("step %d parent = %s, want %s", entry.Index, entry.Parent, parent)
		}
		if entry.Fingerprint == parent {
			t.Fatalf("step %d fingerprint equals its parent", entry.Index)
		}
		parent = entry.Fingerprint
	}

	if plan.Final() != parent {
		t.Fatalf("Final() = %s, want %s", plan.Final(), parent)
	}
}

func TestCompileEmptyPlanFinalIsSeed(t *testing.T) {
	plan := &Plan{Seed: "sha256:abc"}
	if plan.Final() != plan.Seed {
		t.Fatalf("Final() = %s, want seed", plan.Final())
	}
}

func TestCompileRejectsUndeclaredMount(t *testing.T) {
	r := &recipe.Recipe{
		Base: "ubuntu:24.04",
		Steps: []recipe.Step{
			{Mount: &recipe.Mount{Point: "/data", Volume: "nope"}},
		},
	}

	_, err := Compile(r, t.TempDir(), nil)
	if !errors.Is(err, recipe.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestCompileRejectsAmbiguousEnvEncoding(t *testing.T) {
	// A single env value embedding a NUL and "=" would hash identically
	// to two separate variables; it must be rejected before any
	// fingerprint is derived.
	plain := &recipe.Recipe{
		Base: "ubuntu:24.04",
		Steps: []recipe.Step{
			{Env: map[string]string{"A": "1", "B": "2"}},
			{Run: "true"},
		},
	}
	if _, err := Compile(plain, t.TempDir(), nil); err != nil {
		t.Fatal(err)
	}

	ambiguous := &recipe.Recipe{
		Base: "ubuntu:24.04",
		Steps: []recipe.Step{
			{Env: map[string]string{"A": "1\x00B=2"}},
			{Run: "true"},
		},
	}
	if _, err := Compile(ambiguous, t.TempDir(), nil); !errors.Is(err, recipe.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestCompileRejectsEmptyRecipe(t *testing.T) {
	_, err := Compile(&recipe.Recipe{}, t.TempDir(), nil)
	if !errors.Is(err, recipe.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestCompileCopyContentChangesFingerprint(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "app.py")
	if err := os.WriteFile(src, []byte("print('v1')\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := &recipe.Recipe{
		Base: "ubuntu:24.04",
		Steps: []recipe.Step{
			{Copy: "app.py /srv/app.py"},
		},
	}

	before, err := Compile(r, root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if before.Entries[0].Content == "" {
		t.Fatal("copy entry carries no content digest")
	}

	if err := os.WriteFile(src, []byte("print('v2')\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	after, err := Compile(r, root, nil)
	if err != nil {
		t.Fatal(err)
	}

	if before.Entries[0].Fingerprint == after.Entries[0].Fingerprint {
		t.Fatal("fingerprint unchanged after source edit")
	}
}

func TestCompileMissingCopySource(t *testing.T) {
	r := &recipe.Recipe{
		Base: "ubuntu:24.04",
		Steps: []recipe.Step{
			{Copy: "missing.txt /srv/missing.txt"},
		},
	}

	_, err := Compile(r, t.TempDir(), nil)
	if !errors.Is(err, ErrCopy) {
		t.Fatalf("error = %v, want ErrCopy", err)
	}
}

func TestCompileAdvisoryCacheAnnotation(t *testing.T) {
	store, err := cache.Open("")
	if err != nil {
		t.Fatal(err)
	}

	r := benchRecipe()
	plan, err := Compile(r, t.TempDir(), store)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range plan.Entries {
		if entry.Cached {
			t.Fatalf("step %d marked cached against an empty store", entry.Index)
		}
	}

	fp := plan.Entries[0].Fingerprint
	_, err = store.Commit(context.Background(), fp, func(context.Context) (cache.Layer, error) {
		return cache.Layer{ImageTag: r.Base}, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	plan, err = Compile(r, t.TempDir(), store)
	if err != nil {
		t.Fatal(err)
	}
	if !plan.Entries[0].Cached {
		t.Fatal("step 1 not marked cached after commit")
	}
	if plan.Entries[1].Cached {
		t.Fatal("step 2 marked cached without a committed layer")
	}
}

package volume

import (
	"errors"
	"os"
	"testing"
)

func TestResolveCreatesDirectory(t *testing.T) {
	m := NewManager(t.TempDir())

	dir, err := m.Resolve("nvs-bench")
	if err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Fatalf("%q is not a directory", dir)
	}
}

func TestResolveIdempotent(t *testing.T) {
	m := NewManager(t.TempDir())

	first, err := m.Resolve("data")
	if err != nil {
		t.Fatal(err)
	}

	// A file placed in the volume survives re-resolution.
	if err := os.WriteFile(first+"/marker", []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	second, err := m.Resolve("data")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("resolve returned %q then %q", first, second)
	}
	if _, err := os.Stat(second + "/marker"); err != nil {
		t.Fatal("volume contents lost across resolutions")
	}
}

func TestResolveInvalidNames(t *testing.T) {
	m := NewManager(t.TempDir())

	for _, name := range []string{"", "a/b", "..", ".", `a\b`} {
		if _, err := m.Resolve(name); !errors.Is(err, ErrVolume) {
			t.Fatalf("Resolve(%q) error = %v, want ErrVolume", name, err)
		}
	}
}

func TestMount(t *testing.T) {
	m := NewManager(t.TempDir())

	mount, err := m.Mount("bench", "/nvs-bench")
	if err != nil {
		t.Fatal(err)
	}

	if mount.Destination != "/nvs-bench" {
		t.Fatalf("destination = %q", mount.Destination)
	}
	if mount.Type != "bind" {
		t.Fatalf("type = %q", mount.Type)
	}
	if _, err := os.Stat(mount.Source); err != nil {
		t.Fatalf("source %q not created: %v", mount.Source, err)
	}
}

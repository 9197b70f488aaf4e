package cache

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/opencontainers/go-digest"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLookupMiss(t *testing.T) {
	s := testStore(t)
	if _, ok := s.Lookup(digest.FromString("absent")); ok {
		t.Fatal("lookup on empty store reported a hit")
	}
}

func TestCommitAndLookup(t *testing.T) {
	s := testStore(t)
	fp := digest.FromString("step-1")

	layer, err := s.Commit(context.Background(), fp, func(context.Context) (Layer, error) {
		return Layer{ImageTag: "strata/layer:1", Step: "run echo hi"}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if layer.Fingerprint != fp {
		t.Fatalf("fingerprint = %s, want %s", layer.Fingerprint, fp)
	}
	if layer.CreatedAt.IsZero() {
		t.Fatal("CreatedAt not set")
	}

	got, ok := s.Lookup(fp)
	if !ok {
		t.Fatal("committed layer not found")
	}
	if got.ImageTag != "strata/layer:1" {
		t.Fatalf("image tag = %q", got.ImageTag)
	}
}

func TestCommitIdempotent(t *testing.T) {
	s := testStore(t)
	fp := digest.FromString("step-1")

	var calls atomic.Int32
	produce := func(context.Context) (Layer, error) {
		calls.Add(1)
		return Layer{ImageTag: "strata/layer:1"}, nil
	}

	first, err := s.Commit(context.Background(), fp, produce)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Commit(context.Background(), fp, produce)
	if err != nil {
		t.Fatal(err)
	}

	if calls.Load() != 1 {
		t.Fatalf("produce called %d times, want 1", calls.Load())
	}
	if first.ImageTag != second.ImageTag || first.CreatedAt != second.CreatedAt {
		t.Fatal("second commit did not return the stored layer")
	}
}

func TestCommitFailureStoresNothing(t *testing.T) {
	s := testStore(t)
	fp := digest.FromString("step-1")

	wantErr := errors.New("exit code 1")
	_, err := s.Commit(context.Background(), fp, func(context.Context) (Layer, error) {
		return Layer{}, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}

	if _, ok := s.Lookup(fp); ok {
		t.Fatal("failed commit left a layer behind")
	}

	// A later attempt may succeed.
	if _, err := s.Commit(context.Background(), fp, func(context.Context) (Layer, error) {
		return Layer{ImageTag: "strata/layer:1"}, nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Lookup(fp); !ok {
		t.Fatal("retry after failed commit did not store the layer")
	}
}

func TestCommitConcurrentSingleProducer(t *testing.T) {
	s := testStore(t)
	fp := digest.FromString("contended")

	var calls atomic.Int32
	var wg sync.WaitGroup

	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Commit(context.Background(), fp, func(context.Context) (Layer, error) {
				calls.Add(1)
				return Layer{ImageTag: "strata/layer:1"}, nil
			})
			if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("produce called %d times under contention, want 1", calls.Load())
	}
	if s.Len() != 1 {
		t.Fatalf("store holds %d layers, want 1", s.Len())
	}
}

func TestCommitDistinctFingerprintsDoNotBlock(t *testing.T) {
	s := testStore(t)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fp := digest.FromString(string(rune('a' + i)))
			if _, err := s.Commit(context.Background(), fp, func(context.Context) (Layer, error) {
				return Layer{ImageTag: "strata/layer:x"}, nil
			}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if s.Len() != 8 {
		t.Fatalf("store holds %d layers, want 8", s.Len())
	}
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "layers.json")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	fp := digest.FromString("persisted")
	if _, err := s.Commit(context.Background(), fp, func(context.Context) (Layer, error) {
		return Layer{Parent: digest.FromString("parent"), ImageTag: "strata/layer:p", Step: "run make"}, nil
	}); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	layer, ok := reopened.Lookup(fp)
	if !ok {
		t.Fatal("layer not found after reopen")
	}
	if layer.ImageTag != "strata/layer:p" || layer.Step != "run make" {
		t.Fatalf("reloaded layer = %+v", layer)
	}
	if layer.Parent != digest.FromString("parent") {
		t.Fatalf("reloaded parent = %s", layer.Parent)
	}
}

func TestOpenMissingIndex(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "never", "written.json"))
	if err != nil {
		t.Fatalf("missing index treated as error: %v", err)
	}
	if s.Len() != 0 {
		t.Fatal("store not empty")
	}
}

func TestList(t *testing.T) {
	s := testStore(t)

	for _, name := range []string{"one", "two", "three"} {
		fp := digest.FromString(name)
		if _, err := s.Commit(context.Background(), fp, func(context.Context) (Layer, error) {
			return Layer{ImageTag: "strata/layer:" + name}, nil
		}); err != nil {
			t.Fatal(err)
		}
	}

	layers := s.List()
	if len(layers) != 3 {
		t.Fatalf("len(List) = %d, want 3", len(layers))
	}
	for i := 1; i < len(layers); i++ {
		if layers[i].CreatedAt.Before(layers[i-1].CreatedAt) {
			t.Fatal("List not ordered oldest first")
		}
	}
}

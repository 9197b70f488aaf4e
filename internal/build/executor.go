package build

import (
	"context"
	"io"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/stratahq/stratad/internal/runtime"
)

// Executes cache-miss steps against live build containers.
//
// Implemented by the containerd-backed runtime; tests substitute a fake
// to exercise plan execution without a container daemon.
type Executor interface {

	// Ensures the image for ref is present and unpacked.
	EnsureImage(ctx context.Context, ref string) error

	// Starts a build container from an image reference with the given
	// mounts and optional resource attached.
	StartContainer(ctx context.Context, ref, id string, mounts []specs.Mount, resource string) (Container, error)

	// Exports a committed image tag as an OCI archive under output.
	Export(ctx context.Context, tag, output string) (string, error)
}

// A running build container.
type Container interface {

	// Runs a shell command with environment and workdir overrides.
	Exec(ctx context.Context, shell, command string, env []string, workdir string) (*runtime.ExecResult, error)

	// Creates a directory, including parents.
	MkdirAll(ctx context.Context, path string) error

	// Extracts a tar stream into destDir.
	CopyTo(ctx context.Context, r io.Reader, destDir string) error

	// Commits the container's filesystem delta as a tagged image.
	Commit(ctx context.Context, tag string) error

	// Releases the container's task and snapshot.
	Destroy(ctx context.Context)
}

// Resolves declared volume names to attachable mounts.
//
// Implemented by the volume manager. Resolution is idempotent
// (create-if-missing) and shared across concurrent builds.
type VolumeResolver interface {
	Resolve(name string) (string, error)
	Mount(name, point string) (specs.Mount, error)
}

// Adapts the concrete containerd runtime to the [Executor] interface.
type runtimeExecutor struct {
	rt *runtime.Runtime
}

// Wraps a containerd runtime as an [Executor].
func NewRuntimeExecutor(rt *runtime.Runtime) Executor {
	return &runtimeExecutor{rt: rt}
}

func (e *runtimeExecutor) EnsureImage(ctx context.Context, ref string) error {
	return e.rt.EnsureImage(ctx, ref)
}

func (e *runtimeExecutor) StartContainer(ctx context.Context, ref, id string, mounts []specs.Mount, resource string) (Container, error) {
	return e.rt.StartContainer(ctx, ref, id, mounts, resource)
}

func (e *runtimeExecutor) Export(ctx context.Context, tag, output string) (string, error) {
	return e.rt.Export(ctx, tag, output)
}

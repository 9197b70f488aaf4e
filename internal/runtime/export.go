package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/containerd/containerd/v2/core/images/archive"
	"github.com/containerd/platforms"
)

// Filename of the OCI archive produced by Export.
const exportFilename = "image.tar"

// Exports a committed image tag as an OCI archive.
//
// The image is written to output/image.tar, scoped to the host platform.
// Used to materialize the final layer of a successful build for
// consumption outside the daemon.
func (rt *Runtime) Export(ctx context.Context, tag, output string) (string, error) {
	p, err := platforms.Parse(defaultPlatform())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	path := filepath.Join(output, exportFilename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	defer f.Close()

	err = rt.client.Export(ctx, f,
		archive.WithImage(rt.client.ImageService(), tag),
		archive.WithPlatform(platforms.Only(p)),
	)
	if err != nil {
		return "", fmt.Errorf("%w: export %s: %w", ErrRuntime, tag, err)
	}

	slog.Info("image exported", "tag", tag, "path", path)
	return path, nil
}

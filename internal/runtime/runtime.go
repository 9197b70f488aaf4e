package runtime

import (
	"context"
	"fmt"
	"log/slog"
	goruntime "runtime"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/errdefs"
	"github.com/containerd/platforms"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

const (

	// Snapshotter used for container filesystems. fuse-overlayfs provides
	// overlay semantics without requiring root privileges (no mount(2)),
	// allowing stratad to run as a regular user.
	snapshotter = "fuse-overlayfs"

	// OCI runtime shim for running containers.
	ociRuntime = "io.containerd.runc.v2"
)

// Maps resource names to the host device paths attached for them.
type Resources map[string][]string

// Manages the containerd client and provides image and container operations.
type Runtime struct {
	client    *containerd.Client // Containerd client for managing containers and images.
	resources Resources          // Hardware capabilities this daemon can attach.
}

// Creates a runtime connected to the containerd socket at the given address.
//
// The namespace scopes all containerd operations to a single tenant.
// resources names the hardware capabilities available for resource-scoped
// steps. The runtime must be closed when no longer needed.
func New(address, namespace string, resources Resources) (*Runtime, error) {
	client, err := containerd.New(address, containerd.WithDefaultNamespace(namespace))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	if resources == nil {
		resources = Resources{}
	}
	return &Runtime{client: client, resources: resources}, nil
}

// Closes the containerd client connection.
func (rt *Runtime) Close() error {
	return rt.client.Close()
}

// Reports whether a named resource is configured on this daemon.
func (rt *Runtime) HasResource(name string) bool {
	_, ok := rt.resources[name]
	return ok
}

// Ensures the image for ref is present and unpacked for the host platform.
//
// Locally committed layer tags are already present and resolve without
// network access. Anything else is pulled from its registry.
func (rt *Runtime) EnsureImage(ctx context.Context, ref string) error {
	if _, err := rt.client.ImageService().Get(ctx, ref); err == nil {
		return rt.unpackImage(ctx, ref)
	} else if !errdefs.IsNotFound(err) {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	slog.Info("pulling base image", "ref", ref)

	_, err := rt.client.Pull(ctx, ref,
		containerd.WithPullUnpack,
		containerd.WithPullSnapshotter(snapshotter),
		containerd.WithPlatform(defaultPlatform()),
	)
	if err != nil {
		return fmt.Errorf("%w: pull %s: %w", ErrRuntime, ref, err)
	}

	return nil
}

// Unpacks the image layers for the host platform into the snapshotter.
func (rt *Runtime) unpackImage(ctx context.Context, ref string) error {
	image, err := rt.resolveImage(ctx, ref)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := image.Unpack(ctx, snapshotter); err != nil {
		return fmt.Errorf("%w: unpack %s: %w", ErrRuntime, ref, err)
	}
	return nil
}

// Looks up an image record and selects the manifest for the host platform.
func (rt *Runtime) resolveImage(ctx context.Context, ref string) (containerd.Image, error) {
	return resolveImage(ctx, rt.client, ref, defaultPlatform())
}

// Looks up an image record and selects the manifest for the given platform.
func resolveImage(ctx context.Context, client *containerd.Client, ref, platform string) (containerd.Image, error) {
	p, err := platforms.Parse(platform)
	if err != nil {
		return nil, err
	}

	img, err := client.ImageService().Get(ctx, ref)
	if err != nil {
		return nil, err
	}

	return containerd.NewImageWithPlatform(client, img, platforms.Only(p)), nil
}

// Starts a build container from an image reference.
//
// The image must already be present (see [Runtime.EnsureImage]). The given
// mounts are bound into the container, and if resource is non-empty its
// configured devices are attached; an unconfigured resource fails with
// [ErrResourceUnavailable]. Any stale container with the same ID from a
// previous build is removed first. A long-running task (sleep infinity)
// is started so that subsequent Exec calls have a running process to
// attach to.
func (rt *Runtime) StartContainer(ctx context.Context, ref, id string, mounts []specs.Mount, resource string) (*Container, error) {
	var devices []string
	if resource != "" {
		devs, ok := rt.resources[resource]
		if !ok {
			return nil, fmt.Errorf("%w: %q is not configured on this daemon", ErrResourceUnavailable, resource)
		}
		devices = devs
	}

	c := &Container{
		client:   rt.client,
		id:       id,
		platform: defaultPlatform(),
	}

	// Remove any stale container from a previous build with the same ID.
	c.remove(ctx)

	image, err := rt.resolveImage(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	ctr, err := c.create(ctx, image, mounts, devices)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := c.startTask(ctx, ctr); err != nil {
		ctr.Delete(ctx, containerd.WithSnapshotCleanup)
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	slog.Debug("container started", "id", id, "image", ref, "resource", resource)

	return c, nil
}

// Returns the default OCI platform for the host architecture.
func defaultPlatform() string {
	return "linux/" + goruntime.GOARCH
}

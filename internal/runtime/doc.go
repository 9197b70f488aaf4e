// Package runtime executes build steps inside containers backed by
// containerd.
//
// A [Runtime] connects to a containerd daemon and provides base image
// pulls, build container creation, and layer commits. Base images are
// pulled from a registry and unpacked for the host platform; committed
// layers are stored as locally tagged images whose manifests extend
// their parent by one snapshot diff.
//
// Each [Container] wraps a running containerd task. Commands can be
// executed inside the container with environment and working directory
// overrides, files can be copied in as tar streams, and the container's
// filesystem delta can be committed as a new content-addressed layer
// image. Containers should be destroyed when no longer needed to release
// their snapshot and task resources.
//
// Hardware capabilities (e.g. a GPU) are modeled as named resources
// mapped to host device paths in the daemon configuration. A container
// started under a resource gets those devices attached; requesting an
// unconfigured resource fails with [ErrResourceUnavailable].
//
// Example usage:
//
//	rt, err := runtime.New("/run/containerd/containerd.sock", "stratad", resources)
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	ctr, err := rt.StartContainer(ctx, "ubuntu:24.04", "build-1", nil, "")
//	if err != nil {
//	    return err
//	}
//	defer ctr.Destroy(ctx)
//
//	result, err := ctr.Exec(ctx, "/bin/sh", "echo hello", nil, "")
//	if err != nil {
//	    return err
//	}
//
//	if err := ctr.Commit(ctx, "strata/layer:abc"); err != nil {
//	    return err
//	}
package runtime

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stratahq/stratad/internal/runtime"
	"github.com/stratahq/stratad/internal/server"
)

// Represents the 'stratad start' command.
type StartCmd struct {
	Containerd string   `help:"Containerd socket address." placeholder:"PATH" default:"${containerd_address}"`
	Namespace  string   `help:"Containerd namespace for images and containers." default:"${containerd_namespace}"`
	Resource   []string `help:"Host resource attachable by run steps, as NAME=DEVICE. Repeatable." placeholder:"NAME=DEVICE"`
}

// Executes the start command.
//
// Starts the control server on a Unix domain socket and blocks until the
// context is cancelled (e.g. via SIGINT or SIGTERM).
func (c *StartCmd) Run(ctx context.Context) error {
	resources, err := parseResources(c.Resource)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		SocketPath:          RootCmd.Socket,
		ContainerdAddress:   c.Containerd,
		ContainerdNamespace: c.Namespace,
		Resources:           resources,
	})
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	slog.Info("stratad is running")

	<-ctx.Done()

	slog.Info("shutting down")
	return srv.Stop()
}

// Parses repeated NAME=DEVICE flags into the runtime resource table.
// A resource named more than once accumulates devices.
func parseResources(flags []string) (runtime.Resources, error) {
	if len(flags) == 0 {
		return nil, nil
	}

	resources := make(runtime.Resources)
	for _, flag := range flags {
		name, device, ok := strings.Cut(flag, "=")
		if !ok || name == "" || device == "" {
			return nil, fmt.Errorf("invalid resource %q, expected NAME=DEVICE", flag)
		}
		resources[name] = append(resources[name], device)
	}

	return resources, nil
}

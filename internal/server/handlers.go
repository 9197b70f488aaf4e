package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/stratahq/stratad/internal"
	"github.com/stratahq/stratad/internal/build"
	"github.com/stratahq/stratad/internal/protocol"
)

// Handles a build command.
//
// Compiles the recipe into a fingerprinted plan and executes it against
// the layer cache and container runtime.
func (s *Server) handleBuild(ctx context.Context, conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.BuildRequest](payload)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	plan, err := build.Compile(req.Recipe, req.Root, s.store)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	result, err := build.Run(ctx, build.NewRuntimeExecutor(s.runtime), s.store, s.volumes, build.Options{
		Plan:   plan,
		Name:   req.Name,
		Output: req.Output,
	})
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	s.mu.Lock()
	s.builds++
	s.mu.Unlock()

	s.respond(conn, protocol.CmdOK, &protocol.BuildResult{
		Output:      result.Output,
		Fingerprint: result.Fingerprint.String(),
		Executed:    result.Executed,
		Reused:      result.Reused,
	})
}

// Handles a cache command, listing every committed layer.
func (s *Server) handleCache(conn net.Conn) {
	layers := s.store.List()

	result := &protocol.CacheResult{Layers: make([]protocol.LayerStatus, 0, len(layers))}
	for _, layer := range layers {
		status := protocol.LayerStatus{
			Fingerprint: layer.Fingerprint.String(),
			ImageTag:    layer.ImageTag,
			Step:        layer.Step,
			CreatedAt:   layer.CreatedAt,
		}
		if layer.Parent != "" {
			status.Parent = layer.Parent.String()
		}
		result.Layers = append(result.Layers, status)
	}

	s.respond(conn, protocol.CmdOK, result)
}

// Handles a status command.
func (s *Server) handleStatus(conn net.Conn) {
	s.mu.Lock()
	builds := s.builds
	s.mu.Unlock()

	uptime := time.Since(s.startedAt).Truncate(time.Second)

	s.respond(conn, protocol.CmdOK, &protocol.StatusResult{
		Running: true,
		Version: internal.VersionString(),
		Pid:     os.Getpid(),
		Uptime:  uptime.String(),
		Builds:  builds,
		Layers:  s.store.Len(),
	})
}

// Handles a shutdown command.
func (s *Server) handleShutdown(conn net.Conn) {
	s.respond(conn, protocol.CmdOK, nil)
	slog.Info("shutdown requested")

	go func() {
		s.Stop()
	}()
}

// Package server implements the stratad daemon.
//
// The daemon listens on a Unix domain socket for JSON-encoded commands
// from clients. Each connection carries a single request-response
// exchange: the client sends a newline-delimited JSON envelope, the
// server dispatches the command, and writes the result back before
// closing the connection.
//
// Supported commands include building recipes, inspecting the layer
// cache, querying daemon status, and initiating shutdown. Build
// commands are delegated to the build package, which compiles the
// recipe into a fingerprinted plan and executes cache misses through
// the runtime package against containerd.
//
// Example usage:
//
//	srv, err := server.New(server.Config{
//	    ContainerdAddress:   "/run/containerd/containerd.sock",
//	    ContainerdNamespace: "stratad",
//	})
//	if err != nil {
//	    return err
//	}
//
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop()
//
//	srv.Wait()
package server

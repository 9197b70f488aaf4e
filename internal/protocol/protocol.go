// Package protocol defines the wire format spoken over the stratad
// control socket.
//
// Every message is a single newline-delimited JSON envelope carrying a
// command name and an optional payload. Each connection holds one
// request-response exchange.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stratahq/stratad/internal/recipe"
)

// A command name carried in an envelope.
type Command string

const (
	// Requests.
	CmdBuild    Command = "build"
	CmdCache    Command = "cache"
	CmdStatus   Command = "status"
	CmdShutdown Command = "shutdown"

	// Responses.
	CmdOK    Command = "ok"
	CmdError Command = "error"
)

// The outer JSON message exchanged over the socket.
type Envelope struct {
	Command Command         `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Asks the daemon to execute a recipe.
type BuildRequest struct {
	Recipe *recipe.Recipe `json:"recipe"`           // Recipe to execute.
	Name   string         `json:"name,omitempty"`   // Build name for container IDs and logs.
	Root   string         `json:"root,omitempty"`   // Build context for copy sources.
	Output string         `json:"output,omitempty"` // Directory for the exported archive. Empty skips export.
}

// Reports a completed build.
type BuildResult struct {
	Output      string `json:"output,omitempty"` // Path of the exported archive.
	Fingerprint string `json:"fingerprint"`      // Fingerprint of the final layer.
	Executed    int    `json:"executed"`         // Steps that ran.
	Reused      int    `json:"reused"`           // Steps served from the layer cache.
}

// One cached layer as reported by the cache command.
type LayerStatus struct {
	Fingerprint string    `json:"fingerprint"`
	Parent      string    `json:"parent,omitempty"`
	ImageTag    string    `json:"imageTag"`
	Step        string    `json:"step,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Reports the contents of the layer cache.
type CacheResult struct {
	Layers []LayerStatus `json:"layers"`
}

// Reports daemon health.
type StatusResult struct {
	Running bool   `json:"running"`
	Version string `json:"version"`
	Pid     int    `json:"pid"`
	Uptime  string `json:"uptime"`
	Builds  int    `json:"builds"`
	Layers  int    `json:"layers"`
}

// Carries a failure message back to the client.
type ErrorResult struct {
	Message string `json:"message"`
}

// Encodes a command and payload as a JSON envelope without the trailing
// newline.
func Encode(cmd Command, payload any) ([]byte, error) {
	env := Envelope{Command: cmd}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", cmd, err)
		}
		env.Payload = raw
	}

	return json.Marshal(env)
}

// Decodes one envelope from a raw message line.
func Decode(line []byte) (*Envelope, json.RawMessage, error) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Command == "" {
		return nil, nil, fmt.Errorf("decode envelope: missing command")
	}
	return &env, env.Payload, nil
}

// Decodes an envelope payload into a concrete request or result type.
func DecodePayload[T any](payload json.RawMessage) (*T, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("decode payload: empty")
	}
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &v, nil
}

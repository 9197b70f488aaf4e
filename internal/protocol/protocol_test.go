package protocol

import (
	"testing"

	"github.com/stratahq/stratad/internal/recipe"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	req := &BuildRequest{
		Recipe: &recipe.Recipe{
			Base:  "ubuntu:24.04",
			Steps: []recipe.Step{{Run: "echo hi"}},
		},
		Name:   "demo",
		Output: "/tmp/out",
	}

	data, err := Encode(CmdBuild, req)
	if err != nil {
		t.Fatal(err)
	}

	env, payload, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if env.Command != CmdBuild {
		t.Fatalf("command = %q, want %q", env.Command, CmdBuild)
	}

	decoded, err := DecodePayload[BuildRequest](payload)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Name != "demo" || decoded.Recipe.Base != "ubuntu:24.04" {
		t.Fatalf("decoded request = %+v", decoded)
	}
	if len(decoded.Recipe.Steps) != 1 || decoded.Recipe.Steps[0].Run != "echo hi" {
		t.Fatalf("decoded steps = %+v", decoded.Recipe.Steps)
	}
}

func TestEncodeNilPayload(t *testing.T) {
	data, err := Encode(CmdShutdown, nil)
	if err != nil {
		t.Fatal(err)
	}

	env, payload, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if env.Command != CmdShutdown {
		t.Fatalf("command = %q", env.Command)
	}
	if len(payload) != 0 {
		t.Fatalf("payload = %q, want empty", payload)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	if _, _, err := Decode([]byte("not json")); err == nil {
		t.Fatal("malformed line accepted")
	}
	if _, _, err := Decode([]byte(`{"payload":{}}`)); err == nil {
		t.Fatal("envelope without command accepted")
	}
}

func TestDecodePayloadEmpty(t *testing.T) {
	if _, err := DecodePayload[BuildRequest](nil); err == nil {
		t.Fatal("empty payload accepted")
	}
}

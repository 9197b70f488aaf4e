package runtime

import (
	"strings"
	"testing"
)

func TestDefaultPlatform(t *testing.T) {
	p := defaultPlatform()
	if !strings.HasPrefix(p, "linux/") {
		t.Fatalf("defaultPlatform = %q, want linux/<arch>", p)
	}
	parts := strings.Split(p, "/")
	if len(parts) != 2 || parts[1] == "" {
		t.Fatalf("defaultPlatform = %q, want linux/<arch>", p)
	}
}

func TestHasResource(t *testing.T) {
	rt := &Runtime{resources: Resources{"gpu": {"/dev/nvidia0"}}}

	if !rt.HasResource("gpu") {
		t.Fatal("configured resource not reported")
	}
	if rt.HasResource("tpu") {
		t.Fatal("unconfigured resource reported as available")
	}
}

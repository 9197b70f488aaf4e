package cli

import (
	"slices"
	"testing"
)

func TestParseResources(t *testing.T) {
	resources, err := parseResources([]string{
		"gpu=/dev/nvidia0",
		"gpu=/dev/nvidiactl",
		"fpga=/dev/xdma0",
	})
	if err != nil {
		t.Fatal(err)
	}

	if !slices.Equal(resources["gpu"], []string{"/dev/nvidia0", "/dev/nvidiactl"}) {
		t.Fatalf("gpu devices = %v", resources["gpu"])
	}
	if !slices.Equal(resources["fpga"], []string{"/dev/xdma0"}) {
		t.Fatalf("fpga devices = %v", resources["fpga"])
	}
}

func TestParseResourcesEmpty(t *testing.T) {
	resources, err := parseResources(nil)
	if err != nil {
		t.Fatal(err)
	}
	if resources != nil {
		t.Fatalf("resources = %v, want nil", resources)
	}
}

func TestParseResourcesInvalid(t *testing.T) {
	for _, flag := range []string{"gpu", "gpu=", "=/dev/nvidia0"} {
		if _, err := parseResources([]string{flag}); err == nil {
			t.Fatalf("flag %q accepted", flag)
		}
	}
}

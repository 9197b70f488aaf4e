package runtime

import (
	"io"
	"strings"
	"testing"
)

func TestEOFReaderSignalsOnExhaustion(t *testing.T) {
	er := newEOFReader(strings.NewReader("payload"))

	select {
	case <-er.eof():
		t.Fatal("signalled before any read")
	default:
	}

	if _, err := io.Copy(io.Discard, er); err != nil {
		t.Fatal(err)
	}

	select {
	case <-er.eof():
	default:
		t.Fatal("not signalled after EOF")
	}

	// Reads past EOF must not panic on the closed channel.
	if _, err := er.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("read past EOF = %v, want io.EOF", err)
	}
}

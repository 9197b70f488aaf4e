package runtime

import (
	"io"
	"sync"
)

// Wraps a stream fed to a container's stdin and exposes a channel that
// fires once the stream is exhausted.
//
// The exec path needs this signal to close the container's stdin: the
// containerd shim holds both ends of the stdin FIFO open and never
// propagates EOF on its own.
type eofReader struct {
	src  io.Reader
	once sync.Once
	ch   chan struct{}
}

func newEOFReader(src io.Reader) *eofReader {
	return &eofReader{src: src, ch: make(chan struct{})}
}

// Fires once when the wrapped reader first returns [io.EOF].
func (r *eofReader) eof() <-chan struct{} {
	return r.ch
}

// Delegates to the wrapped reader, signalling on the first [io.EOF].
// Other errors pass through without signalling.
func (r *eofReader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if err == io.EOF {
		r.once.Do(func() { close(r.ch) })
	}
	return n, err
}

package toolrpc

import (
	"errors"
	"io"
	"time"
)

// errReadTimeout signals that no chunk arrived before the deadline. The
// stream itself may still be alive; a later next call can succeed.
var errReadTimeout = errors.New("read timeout")

type readResult struct {
	chunk []byte
	err   error
}

// boundedReader wraps a byte stream so each read either yields a chunk or
// times out, never blocking past the caller-supplied deadline. All reads on
// the underlying stream happen on a single goroutine, so a timed-out read is
// never raced by a later one; the abandoned read's data is simply delivered
// on a following turn.
type boundedReader struct {
	results chan readResult
	done    chan struct{}
}

func newBoundedReader(r io.Reader) *boundedReader {
	b := &boundedReader{
		results: make(chan readResult, 1),
		done:    make(chan struct{}),
	}
	go b.readLoop(r)
	return b
}

// next waits up to timeout for the next chunk. It returns io.EOF at end of
// stream and errReadTimeout when the timer fires first.
func (b *boundedReader) next(timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res, ok := <-b.results:
		if !ok {
			return nil, io.EOF
		}
		return res.chunk, res.err
	case <-timer.C:
		return nil, errReadTimeout
	}
}

// stop releases the read loop. The caller is expected to close the
// underlying stream as well so a blocked Read returns.
func (b *boundedReader) stop() {
	close(b.done)
}

func (b *boundedReader) readLoop(r io.Reader) {
	defer close(b.results)

	for {
		buf := make([]byte, 4096)
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case b.results <- readResult{chunk: buf[:n]}:
			case <-b.done:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				select {
				case b.results <- readResult{err: err}:
				case <-b.done:
				}
			}
			return
		}
	}
}

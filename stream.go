package toolrpc

import (
	"encoding/json"
	"errors"
	"io"
	"time"
)

// streamChunkTimeout caps how long a single bounded read may wait. The
// effective per-chunk timeout is the lesser of this ceiling and the time
// remaining until the overall deadline.
var streamChunkTimeout = 5 * time.Second

// callOutcome classifies how one exchange resolved.
type callOutcome int

const (
	// outcomeResult means a result field was present, even if its value
	// was JSON null.
	outcomeResult callOutcome = iota
	// outcomeError means the server returned an explicit error payload.
	outcomeError
	// outcomeNoResult covers timeouts, transport failures, and responses
	// where the result field never appeared.
	outcomeNoResult
)

// extractStreamResult reads SSE frames from body until a JSON-RPC envelope
// carrying a result or error field arrives, or the overall timeout elapses.
// The body is always closed before returning so the underlying connection is
// released promptly. An error payload short-circuits the read; a later
// result frame in the same exchange is never mistaken for success.
func (t *transport) extractStreamResult(body io.ReadCloser, timeout time.Duration) (json.RawMessage, callOutcome) {
	defer body.Close()

	reader := newBoundedReader(body)
	defer reader.stop()

	deadline := time.Now().Add(timeout)
	var buf string

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.logger.Warn("stream deadline elapsed without a terminal payload", "timeout", timeout)
			return nil, outcomeNoResult
		}

		chunkTimeout := streamChunkTimeout
		if remaining < chunkTimeout {
			chunkTimeout = remaining
		}

		chunk, err := reader.next(chunkTimeout)
		if err != nil {
			if errors.Is(err, errReadTimeout) {
				// The stream may still be alive; the overall deadline
				// bounds how long we keep retrying.
				continue
			}
			if !errors.Is(err, io.EOF) {
				t.logger.Warn("stream read failed", "err", err)
			}
			return nil, outcomeNoResult
		}

		buf += string(chunk)
		events, rest := parseSSEBuffer(buf)
		buf = rest

		for _, ev := range events {
			if ev.Type != "message" {
				t.logger.Debug("dropping non-message event", "type", ev.Type)
				continue
			}

			var msg JSONRPCMessage
			if err := json.Unmarshal([]byte(ev.Data), &msg); err != nil {
				// Partial or noise frames are expected; keep reading.
				continue
			}

			if msg.Error != nil {
				t.logger.Warn("stream returned error payload", "err", truncate(msg.Error.Error(), 200))
				return nil, outcomeError
			}
			if msg.Result != nil {
				return msg.Result, outcomeResult
			}
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

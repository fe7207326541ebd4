package toolrpc

import "strings"

// sseEvent is one decoded Server-Sent Events frame. Type defaults to
// "message" when the block carries no event: line.
type sseEvent struct {
	Type string
	Data string
}

// parseSSEBuffer splits the buffer accumulated so far into fully terminated
// events and the unconsumed tail. The caller must carry the tail forward and
// prepend it to the next chunk; feeding progressively larger buffers never
// duplicates or drops an event once its terminating blank line has arrived.
func parseSSEBuffer(buf string) ([]sseEvent, string) {
	// A trailing carriage return may be the first half of a CRLF split
	// across chunks; keep it out of normalization until its pair arrives.
	var pending string
	if strings.HasSuffix(buf, "\r") {
		pending = "\r"
		buf = buf[:len(buf)-1]
	}

	normalized := strings.ReplaceAll(buf, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	var events []sseEvent
	for {
		idx := strings.Index(normalized, "\n\n")
		if idx < 0 {
			return events, normalized + pending
		}
		block := normalized[:idx]
		normalized = normalized[idx+2:]

		ev, ok := parseSSEBlock(block)
		if !ok {
			continue
		}
		events = append(events, ev)
	}
}

func parseSSEBlock(block string) (sseEvent, bool) {
	ev := sseEvent{Type: "message"}

	var data []string
	for _, line := range strings.Split(block, "\n") {
		switch {
		case strings.HasPrefix(line, "event:"):
			ev.Type = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	// Blocks without a data line (comments, keep-alives) produce no event.
	if len(data) == 0 {
		return sseEvent{}, false
	}

	ev.Data = strings.Join(data, "\n")
	return ev, true
}

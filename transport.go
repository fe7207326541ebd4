package toolrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/elnormous/contenttype"
)

var (
	eventStreamMediaType = contenttype.NewMediaType("text/event-stream")
)

// clientHeader identifies this client on every request.
const clientHeader = "X-Client-Info"

// transport issues JSON-RPC exchanges against the session endpoint over
// HTTP POST.
type transport struct {
	endpoint   string
	headers    http.Header
	httpClient *http.Client
	logger     *slog.Logger
}

func newTransport(endpoint string, cfg Config, httpClient *http.Client, logger *slog.Logger) *transport {
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+cfg.Token)
	headers.Set("Content-Type", "application/json")
	headers.Set("Accept", "application/json, text/event-stream")
	headers.Set(clientHeader, cfg.ClientInfo.Name+"/"+cfg.ClientInfo.Version)

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &transport{
		endpoint:   endpoint,
		headers:    headers,
		httpClient: httpClient,
		logger:     logger,
	}
}

// send transmits a one-way notification. The response body is discarded;
// notifications are never awaited for success or failure.
func (t *transport) send(ctx context.Context, msg JSONRPCMessage) error {
	resp, err := t.post(ctx, msg)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// sendAndAwait issues one request and resolves it to a raw result or an
// absence. Transport failures never surface as errors on this path; they
// resolve to no result and are logged. When the response is an event stream
// the result is extracted frame by frame within the remaining deadline.
func (t *transport) sendAndAwait(ctx context.Context, msg JSONRPCMessage, timeout time.Duration) (json.RawMessage, callOutcome) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := t.post(callCtx, msg)
	if err != nil {
		t.logger.Warn("request failed", "method", msg.Method, "id", msg.ID, "err", err)
		return nil, outcomeNoResult
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		t.logger.Warn("unexpected status code",
			"method", msg.Method, "status", resp.StatusCode, "detail", truncate(string(detail), 200))
		return nil, outcomeNoResult
	}

	ctype := contenttype.NewMediaType(resp.Header.Get("Content-Type"))
	if ctype.Matches(eventStreamMediaType) {
		deadline, _ := callCtx.Deadline()
		return t.extractStreamResult(resp.Body, time.Until(deadline))
	}

	defer resp.Body.Close()

	var res JSONRPCMessage
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.logger.Warn("failed to decode response", "method", msg.Method, "err", err)
		return nil, outcomeNoResult
	}

	if res.Error != nil {
		t.logger.Warn("response returned error payload",
			"method", msg.Method, "err", truncate(res.Error.Error(), 200))
		return nil, outcomeError
	}
	if res.Result == nil {
		return nil, outcomeNoResult
	}

	return res.Result, outcomeResult
}

func (t *transport) post(ctx context.Context, msg JSONRPCMessage) (*http.Response, error) {
	msgBs, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(msgBs))
	if err != nil {
		return nil, err
	}
	for key := range t.headers {
		req.Header.Set(key, t.headers.Get(key))
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	return resp, nil
}

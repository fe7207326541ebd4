package toolrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionOption is a function that configures a session.
type SessionOption func(*Session)

type sessionState int

const (
	stateUnstarted sessionState = iota
	stateInitializing
	stateReady
	stateClosed
)

// Session is one logical connection to a remote tool server. It sequences
// the protocol handshake (initialize, notifications/initialized), discovers
// the available tools, and executes tool calls with a differentiated retry
// policy for mutating tools.
//
// A Session is owned by a single logical caller. Request ids are generated
// synchronously before any I/O begins, so no internal locking is required
// even when a caller issues logically concurrent calls: each call owns its
// own id and its own HTTP exchange.
//
// A Session must be created with NewSession, started with Initialize, and
// closed with Close when no longer needed. Tool call failures never surface
// as errors; they degrade to descriptive text suitable for presenting
// upstream.
type Session struct {
	config    Config
	transport *transport
	logger    *slog.Logger

	correlationID string
	nextID        int64
	state         sessionState
	started       time.Time

	tools []Tool

	writeCallTimeout time.Duration
	readCallTimeout  time.Duration

	auditSink AuditSink
	audit     AuditRecord
}

var (
	defaultWriteCallTimeout = 60 * time.Second
	defaultReadCallTimeout  = 30 * time.Second

	// initializeSettleDelay gives the server a moment to process the
	// initialized notification before the first request lands on the new
	// session.
	initializeSettleDelay = 100 * time.Millisecond

	defaultClientInfo = Info{Name: "go-toolrpc", Version: "0.1.0"}
)

// WithLogger sets the logger for the session. The session's correlation id
// is attached to every log line it emits.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithHTTPClient sets the HTTP client used for all exchanges. If unset, the
// default HTTP client is used.
func WithHTTPClient(client *http.Client) SessionOption {
	return func(s *Session) {
		s.transport.httpClient = client
	}
}

// WithWriteCallTimeout sets the per-call timeout for write-classified tools.
func WithWriteCallTimeout(timeout time.Duration) SessionOption {
	return func(s *Session) {
		s.writeCallTimeout = timeout
	}
}

// WithReadCallTimeout sets the per-call timeout for read-only tools. It also
// bounds the initialize and tools/list requests.
func WithReadCallTimeout(timeout time.Duration) SessionOption {
	return func(s *Session) {
		s.readCallTimeout = timeout
	}
}

// WithAuditSink sets the sink that receives the session's routing-trace
// record on Close. Sink failures are logged and never propagated.
func WithAuditSink(sink AuditSink) SessionOption {
	return func(s *Session) {
		s.auditSink = sink
	}
}

// WithAuditContext attaches the top-level request's query text and chosen
// route to the session's audit record.
func WithAuditContext(query, route string) SessionOption {
	return func(s *Session) {
		s.audit.Query = query
		s.audit.Route = route
	}
}

// NewSession creates a session for the given configuration. The session is
// not connected until Initialize is called.
func NewSession(cfg Config, options ...SessionOption) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.ClientInfo == (Info{}) {
		cfg.ClientInfo = defaultClientInfo
	}

	endpoint, err := cfg.endpoint()
	if err != nil {
		return nil, err
	}

	correlationID := uuid.New().String()

	s := &Session{
		config:        cfg,
		logger:        slog.Default(),
		correlationID: correlationID,
		started:       time.Now(),
		audit: AuditRecord{
			RequestID: correlationID,
			EntityID:  cfg.EntityID,
			OrgID:     cfg.OrgID,
		},
	}
	s.transport = newTransport(endpoint, cfg, nil, nil)

	for _, opt := range options {
		opt(s)
	}

	if s.writeCallTimeout == 0 {
		s.writeCallTimeout = defaultWriteCallTimeout
	}
	if s.readCallTimeout == 0 {
		s.readCallTimeout = defaultReadCallTimeout
	}

	s.logger = s.logger.With("correlationID", correlationID)
	s.transport.logger = s.logger

	return s, nil
}

// CorrelationID returns the identifier attached to all log lines and the
// audit record produced while servicing this session.
func (s *Session) CorrelationID() string {
	return s.correlationID
}

// Tools returns the descriptors discovered by ListTools. The list is
// read-only after discovery.
func (s *Session) Tools() []Tool {
	return s.tools
}

// Initialize performs the protocol handshake: it sends the initialize
// request, fires the one-way initialized notification, and waits a short
// settle delay before the session becomes ready. If the initialize call
// yields no result the session never becomes usable and the caller must not
// proceed to ListTools or CallTool.
func (s *Session) Initialize(ctx context.Context) error {
	if s.state != stateUnstarted {
		return errors.New("session already started")
	}
	s.state = stateInitializing

	params := initializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    ClientCapabilities{},
		ClientInfo:      s.config.ClientInfo,
	}
	paramsBs, err := json.Marshal(params)
	if err != nil {
		s.state = stateClosed
		return fmt.Errorf("failed to marshal initialize params: %w", err)
	}

	res, outcome := s.transport.sendAndAwait(ctx, s.request(methodInitialize, paramsBs), s.readCallTimeout)
	if outcome != outcomeResult {
		s.state = stateClosed
		return errors.New("initialize yielded no result")
	}

	var initRes initializeResult
	if err := json.Unmarshal(res, &initRes); err == nil && initRes.ServerInfo.Name != "" {
		s.logger.Info("server identified",
			"server", initRes.ServerInfo.Name, "version", initRes.ServerInfo.Version)
	}

	if err := s.transport.send(ctx, s.notification(methodNotificationsInitialized)); err != nil {
		// One-way; the handshake does not depend on its outcome.
		s.logger.Warn("failed to send initialized notification", "err", err)
	}

	time.Sleep(initializeSettleDelay)

	s.state = stateReady
	return nil
}

// ListTools discovers the tools available on the server. An absent or
// malformed result yields an empty list, never an error.
func (s *Session) ListTools(ctx context.Context) []Tool {
	if s.state != stateReady {
		s.logger.Error("tools/list called before session is ready")
		return nil
	}

	res, outcome := s.transport.sendAndAwait(ctx, s.request(MethodToolsList, json.RawMessage(`{}`)), s.readCallTimeout)
	if outcome != outcomeResult {
		return nil
	}

	var result ListToolsResult
	if err := json.Unmarshal(res, &result); err != nil {
		s.logger.Warn("malformed tools/list result", "err", err)
		return nil
	}

	s.tools = result.Tools
	for _, tool := range result.Tools {
		s.audit.ToolsLoaded = append(s.audit.ToolsLoaded, tool.Name)
	}

	return result.Tools
}

// CallTool executes one tool and returns its textual outcome. Write-
// classified tools get a 60s timeout and exactly one retry when no result
// arrives; read-only tools get 30s and are never retried. Every failure mode
// degrades to a descriptive string naming the tool, because tool-call
// results are surfaced directly as conversational output.
func (s *Session) CallTool(ctx context.Context, name string, args json.RawMessage) string {
	if s.state != stateReady {
		s.logger.Error("tool call before session is ready", "tool", name)
		return fmt.Sprintf("Tool %s could not run: session is not ready.", name)
	}

	write := IsWriteTool(name)
	timeout := s.readCallTimeout
	if write {
		timeout = s.writeCallTimeout
	}

	params := CallToolParams{Name: name, Arguments: args}
	paramsBs, err := json.Marshal(params)
	if err != nil {
		s.logger.Error("failed to marshal tool arguments", "tool", name, "err", err)
		return fmt.Sprintf("Tool %s could not run: invalid arguments.", name)
	}

	attemptStart := time.Now()
	res, outcome := s.transport.sendAndAwait(ctx, s.request(MethodToolsCall, paramsBs), timeout)

	retried := false
	if outcome == outcomeNoResult && write {
		// Exactly one retry, with a fresh request id so a late response
		// to the first attempt can never be correlated with this one.
		// Explicit error payloads are final and are not retried.
		s.logger.Warn("write tool yielded no result, retrying once",
			"tool", name, "elapsed", time.Since(attemptStart))
		retried = true
		attemptStart = time.Now()
		res, outcome = s.transport.sendAndAwait(ctx, s.request(MethodToolsCall, paramsBs), timeout)
	}

	if write {
		s.audit.WriteOutcomes = append(s.audit.WriteOutcomes, WriteOutcome{
			Tool:      name,
			Succeeded: outcome == outcomeResult,
			Retried:   retried,
		})
	}

	switch outcome {
	case outcomeResult:
		s.audit.ToolsUsed = append(s.audit.ToolsUsed, name)
		return renderToolResult(res)
	case outcomeError:
		s.audit.ToolsFailed = append(s.audit.ToolsFailed, name)
		return fmt.Sprintf("Tool %s failed: the server reported an error.", name)
	default:
		s.audit.ToolsFailed = append(s.audit.ToolsFailed, name)
		elapsed := time.Since(attemptStart)
		s.logger.Warn("tool call yielded no result", "tool", name, "elapsed", elapsed)
		if elapsed >= timeout {
			return fmt.Sprintf("Tool %s timed out after %s.", name, timeout)
		}
		return fmt.Sprintf("Tool %s returned no result.", name)
	}
}

// RecordTokenUsage attaches token counts from the surrounding request to the
// session's audit record.
func (s *Session) RecordTokenUsage(in, out int) {
	s.audit.TokensIn = in
	s.audit.TokensOut = out
}

// Close marks the session closed and flushes the audit record. It is
// idempotent; repeated calls do nothing.
func (s *Session) Close() {
	if s.state == stateClosed {
		return
	}
	s.state = stateClosed
	s.flushAudit()
}

// request builds a request envelope with a fresh id. Ids are a monotonic
// per-session counter, so uniqueness is an invariant rather than a
// probabilistic property; retries consume fresh ids like any other request.
func (s *Session) request(method string, params json.RawMessage) JSONRPCMessage {
	s.nextID++
	return JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      s.nextID,
		Method:  method,
		Params:  params,
	}
}

func (s *Session) notification(method string) JSONRPCMessage {
	return JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		Method:  method,
	}
}

// renderToolResult flattens text content blocks into the call's textual
// outcome. Unrecognized result shapes come back as raw JSON so no
// information is silently dropped.
func renderToolResult(res json.RawMessage) string {
	var result CallToolResult
	if err := json.Unmarshal(res, &result); err == nil && len(result.Content) > 0 {
		var texts []string
		for _, c := range result.Content {
			if c.Type == ContentTypeText {
				texts = append(texts, c.Text)
			}
		}
		if len(texts) > 0 {
			return strings.Join(texts, "\n")
		}
	}
	return string(res)
}

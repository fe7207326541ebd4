package toolrpc

import (
	"context"
	"time"
)

// AuditSink receives one routing-trace record per session. Implementations
// typically insert the record into an audit table. Failures are caught by
// the session and logged, never propagated to the caller.
type AuditSink interface {
	Record(ctx context.Context, rec AuditRecord) error
}

// WriteOutcome captures the final state of one write-classified tool call.
type WriteOutcome struct {
	Tool      string `json:"tool"`
	Succeeded bool   `json:"succeeded"`
	Retried   bool   `json:"retried"`
}

// AuditRecord is the routing trace of one session: which tools were
// discovered, which were called, which failed, and how write calls ended up.
type AuditRecord struct {
	// RequestID is the session's correlation id; log lines carry the same
	// value so the trace can be reconstructed across components.
	RequestID string `json:"requestId"`
	EntityID  string `json:"entityId"`
	OrgID     string `json:"orgId"`

	// Query and Route are supplied by the caller that routed the
	// top-level request to this session.
	Query string `json:"query,omitempty"`
	Route string `json:"route,omitempty"`

	ToolsLoaded   []string       `json:"toolsLoaded,omitempty"`
	ToolsUsed     []string       `json:"toolsUsed,omitempty"`
	ToolsFailed   []string       `json:"toolsFailed,omitempty"`
	WriteOutcomes []WriteOutcome `json:"writeOutcomes,omitempty"`

	TokensIn  int `json:"tokensIn,omitempty"`
	TokensOut int `json:"tokensOut,omitempty"`

	Elapsed time.Duration `json:"elapsed"`
}

var auditFlushTimeout = 5 * time.Second

func (s *Session) flushAudit() {
	if s.auditSink == nil {
		return
	}

	s.audit.Elapsed = time.Since(s.started)

	ctx, cancel := context.WithTimeout(context.Background(), auditFlushTimeout)
	defer cancel()

	if err := s.auditSink.Record(ctx, s.audit); err != nil {
		s.logger.Error("failed to record audit trail", "err", err)
	}
}

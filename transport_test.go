package toolrpc

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestTransport(t *testing.T, handler http.HandlerFunc) *transport {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{
		BaseURL:    srv.URL,
		EntityID:   "ent-1",
		OrgID:      "org-1",
		Token:      "secret-token",
		ClientInfo: Info{Name: "toolrpc-test", Version: "0.0.1"},
	}
	endpoint, err := cfg.endpoint()
	if err != nil {
		t.Fatalf("failed to build endpoint: %v", err)
	}

	return newTransport(endpoint, cfg, srv.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testRequest(id int64, method string) JSONRPCMessage {
	return JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Method:  method,
		Params:  json.RawMessage(`{}`),
	}
}

func TestSendAndAwaitJSONResult(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("entityid"); got != "ent-1" {
			t.Errorf("got entityid %q, want %q", got, "ent-1")
		}
		if got := r.URL.Query().Get("orgid"); got != "org-1" {
			t.Errorf("got orgid %q, want %q", got, "org-1")
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("got authorization %q, want bearer token", got)
		}
		if got := r.Header.Get("Accept"); !strings.Contains(got, "text/event-stream") {
			t.Errorf("accept header %q does not offer event-stream", got)
		}
		if got := r.Header.Get(clientHeader); got != "toolrpc-test/0.0.1" {
			t.Errorf("got client header %q, want %q", got, "toolrpc-test/0.0.1")
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`)
	})

	res, outcome := tr.sendAndAwait(context.Background(), testRequest(1, MethodToolsList), time.Second)
	if outcome != outcomeResult {
		t.Fatalf("got outcome %v, want outcomeResult", outcome)
	}
	if string(res) != `{"ok":true}` {
		t.Errorf("got result %s, want {\"ok\":true}", res)
	}
}

func TestSendAndAwaitNonOKStatus(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "backend unavailable", http.StatusBadGateway)
	})

	if _, outcome := tr.sendAndAwait(context.Background(), testRequest(1, MethodToolsCall), time.Second); outcome != outcomeNoResult {
		t.Errorf("got outcome %v, want outcomeNoResult", outcome)
	}
}

func TestSendAndAwaitErrorPayload(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"boom"}}`)
	})

	if _, outcome := tr.sendAndAwait(context.Background(), testRequest(1, MethodToolsCall), time.Second); outcome != outcomeError {
		t.Errorf("got outcome %v, want outcomeError", outcome)
	}
}

func TestSendAndAwaitResultAbsentVersusNull(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantOutcome callOutcome
		wantRes     string
	}{
		{
			name:        "absent result is no result",
			body:        `{"jsonrpc":"2.0","id":1}`,
			wantOutcome: outcomeNoResult,
		},
		{
			name:        "null result is a successful result",
			body:        `{"jsonrpc":"2.0","id":1,"result":null}`,
			wantOutcome: outcomeResult,
			wantRes:     "null",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTransport(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, tt.body)
			})

			res, outcome := tr.sendAndAwait(context.Background(), testRequest(1, MethodToolsCall), time.Second)
			if outcome != tt.wantOutcome {
				t.Fatalf("got outcome %v, want %v", outcome, tt.wantOutcome)
			}
			if string(res) != tt.wantRes {
				t.Errorf("got result %q, want %q", res, tt.wantRes)
			}
		})
	}
}

func TestSendAndAwaitEventStreamDispatch(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, _ *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Error("response writer does not support flushing")
			return
		}

		// A parameterized media type must still dispatch to the stream path.
		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "event: message\ndata: {\"jsonrpc\":\"2.0\",\"id\":1,\"result\":{\"streamed\":true}}\n\n")
		flusher.Flush()
	})

	res, outcome := tr.sendAndAwait(context.Background(), testRequest(1, MethodToolsCall), time.Second)
	if outcome != outcomeResult {
		t.Fatalf("got outcome %v, want outcomeResult", outcome)
	}
	if string(res) != `{"streamed":true}` {
		t.Errorf("got result %s, want {\"streamed\":true}", res)
	}
}

func TestSendNotificationOmitsID(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), `"id"`) {
			t.Errorf("notification body carries an id: %s", body)
		}
		w.WriteHeader(http.StatusAccepted)
	})

	notif := JSONRPCMessage{JSONRPC: JSONRPCVersion, Method: methodNotificationsInitialized}
	if err := tr.send(context.Background(), notif); err != nil {
		t.Errorf("send failed: %v", err)
	}
}

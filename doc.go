// Package toolrpc implements a streaming JSON-RPC 2.0 client for remote
// tool-execution servers. Requests go out as HTTP POST; responses come back
// either as a single JSON document or as an incrementally delivered
// Server-Sent-Events stream. The client frames SSE events out of the chunked
// byte stream, bounds every read with a deadline, distinguishes error
// payloads from successful results, and retries mutating tool calls exactly
// once when no result arrives.
package toolrpc

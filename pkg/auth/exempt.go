package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// maxRPCPeek bounds how much of a request body is buffered to discover
// the JSON-RPC method. MCP requests are small; anything larger is not a
// call we can exempt.
const maxRPCPeek = 1 << 20

// builtinExemptMethods are protocol handshake and listing operations that
// never require authentication: a client must be able to discover the
// server's capabilities before it knows which credentials to present.
var builtinExemptMethods = map[string]struct{}{
	"initialize":               {},
	"ping":                     {},
	"tools/list":               {},
	"prompts/list":             {},
	"resources/list":           {},
	"resources/templates/list": {},
}

// targetedMethods are MCP operations that address a named tool, resource
// or prompt; their target is matched against host-declared exemptions.
var targetedMethods = map[string]struct{}{
	"tools/call":     {},
	"resources/read": {},
	"prompts/get":    {},
}

// ExemptEntry declares the auth requirement for one named tool, resource
// or prompt, or for a plain URI path such as /health.
type ExemptEntry struct {
	// Name is the tool/prompt name, the resource URI, or a request path.
	Name string

	// RequireAuth marks the entry as protected. Entries with RequireAuth
	// false are exempt from authentication entirely.
	RequireAuth bool
}

// ExemptionTable is the static rule set allowing specific MCP methods and
// resources to bypass authentication. It is merged once at startup from
// the built-in method list and host-supplied declarations, and is
// read-only afterwards.
type ExemptionTable struct {
	entries map[string]bool // name/uri/path -> requireAuth
}

// NewExemptionTable builds the table from host declarations.
func NewExemptionTable(entries ...ExemptEntry) *ExemptionTable {
	t := &ExemptionTable{entries: make(map[string]bool, len(entries))}
	for _, e := range entries {
		t.entries[e.Name] = e.RequireAuth
	}
	return t
}

// Add registers additional entries. Add is intended for startup wiring
// only; the table must not be mutated once requests are being served.
func (t *ExemptionTable) Add(entries ...ExemptEntry) {
	for _, e := range entries {
		t.entries[e.Name] = e.RequireAuth
	}
}

// RPCCall is the subset of a JSON-RPC request the exemption check needs.
type RPCCall struct {
	// Method is the JSON-RPC method, e.g. "tools/call".
	Method string

	// Target is params.name (tools, prompts) or params.uri (resources).
	Target string
}

// IsExempt reports whether a request bypasses authentication.
//
// A request is exempt when its path is declared requireAuth=false, when
// its JSON-RPC method is a built-in handshake/listing operation or a
// notification, or when it addresses a tool/resource/prompt declared
// requireAuth=false. Header content plays no role here: even a malformed
// Authorization header must not fail an exempt request.
func (t *ExemptionTable) IsExempt(path string, call *RPCCall) bool {
	if req, ok := t.entries[path]; ok && !req {
		return true
	}
	if call == nil {
		return false
	}

	if _, ok := builtinExemptMethods[call.Method]; ok {
		return true
	}
	if strings.HasPrefix(call.Method, "notifications/") {
		return true
	}

	if _, ok := targetedMethods[call.Method]; ok && call.Target != "" {
		if req, declared := t.entries[call.Target]; declared && !req {
			return true
		}
	}
	return false
}

// splicedBody re-joins a buffered prefix with the unread rest of the
// original body, delegating Close to the original.
type splicedBody struct {
	io.Reader
	closer io.Closer
}

func (s splicedBody) Close() error { return s.closer.Close() }

// PeekRPCCall extracts the JSON-RPC method and target from a request body
// without consuming it: the body is buffered (bounded) and restored so the
// downstream MCP handler reads it unchanged.
//
// Returns nil for requests without a parseable JSON-RPC body (GET streams,
// batch payloads, oversized bodies).
func PeekRPCCall(r *http.Request) *RPCCall {
	if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodDelete {
		return nil
	}

	original := r.Body
	buf, err := io.ReadAll(io.LimitReader(original, maxRPCPeek+1))
	if err != nil || len(buf) > maxRPCPeek {
		// Splice the prefix back onto whatever was not read.
		r.Body = splicedBody{io.MultiReader(bytes.NewReader(buf), original), original}
		return nil
	}
	_ = original.Close()
	r.Body = io.NopCloser(bytes.NewReader(buf))

	var msg struct {
		Method string `json:"method"`
		Params struct {
			Name string `json:"name"`
			URI  string `json:"uri"`
		} `json:"params"`
	}
	if err := json.Unmarshal(buf, &msg); err != nil || msg.Method == "" {
		return nil
	}

	call := &RPCCall{Method: msg.Method, Target: msg.Params.Name}
	if call.Target == "" {
		call.Target = msg.Params.URI
	}
	return call
}

package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsExemptBuiltins(t *testing.T) {
	table := NewExemptionTable()

	for _, method := range []string{
		"initialize", "ping", "tools/list", "prompts/list",
		"resources/list", "resources/templates/list",
		"notifications/initialized", "notifications/cancelled",
	} {
		assert.True(t, table.IsExempt("/mcp", &RPCCall{Method: method}), "method %s", method)
	}

	assert.False(t, table.IsExempt("/mcp", &RPCCall{Method: "tools/call", Target: "anything"}))
	assert.False(t, table.IsExempt("/mcp", nil))
}

func TestIsExemptDeclaredTargets(t *testing.T) {
	table := NewExemptionTable(
		ExemptEntry{Name: "echo", RequireAuth: false},
		ExemptEntry{Name: "secret", RequireAuth: true},
		ExemptEntry{Name: "docs://readme", RequireAuth: false},
	)

	assert.True(t, table.IsExempt("/mcp", &RPCCall{Method: "tools/call", Target: "echo"}))
	assert.False(t, table.IsExempt("/mcp", &RPCCall{Method: "tools/call", Target: "secret"}))
	assert.False(t, table.IsExempt("/mcp", &RPCCall{Method: "tools/call", Target: "undeclared"}))
	assert.True(t, table.IsExempt("/mcp", &RPCCall{Method: "resources/read", Target: "docs://readme"}))
	assert.True(t, table.IsExempt("/mcp", &RPCCall{Method: "prompts/get", Target: "echo"}))
}

func TestIsExemptPaths(t *testing.T) {
	table := NewExemptionTable(ExemptEntry{Name: "/health", RequireAuth: false})

	assert.True(t, table.IsExempt("/health", nil))
	assert.False(t, table.IsExempt("/mcp", nil))
}

// Exemption must not apply to non-targeted methods even when the target
// name happens to be declared.
func TestIsExemptIgnoresForeignMethods(t *testing.T) {
	table := NewExemptionTable(ExemptEntry{Name: "echo", RequireAuth: false})
	assert.False(t, table.IsExempt("/mcp", &RPCCall{Method: "tools/frobnicate", Target: "echo"}))
}

func TestPeekRPCCall(t *testing.T) {
	body := `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`
	r := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))

	call := PeekRPCCall(r)
	require.NotNil(t, call)
	assert.Equal(t, "tools/call", call.Method)
	assert.Equal(t, "echo", call.Target)

	// Body is restored for the downstream handler.
	restored, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	assert.Equal(t, body, string(restored))
}

func TestPeekRPCCallResourceURI(t *testing.T) {
	body := `{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"docs://readme"}}`
	r := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))

	call := PeekRPCCall(r)
	require.NotNil(t, call)
	assert.Equal(t, "docs://readme", call.Target)
}

func TestPeekRPCCallNonRPCBodies(t *testing.T) {
	for name, body := range map[string]string{
		"NotJSON":   "plain text",
		"NoMethod":  `{"jsonrpc":"2.0","id":1}`,
		"JSONArray": `[{"method":"ping"}]`,
		"Empty":     "",
	} {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
			assert.Nil(t, PeekRPCCall(r))

			restored, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.Equal(t, body, string(restored))
		})
	}
}

func TestPeekRPCCallSkipsGET(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	assert.Nil(t, PeekRPCCall(r))
}

func TestPeekRPCCallOversizedBody(t *testing.T) {
	huge := `{"method":"tools/call","padding":"` + strings.Repeat("x", maxRPCPeek) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(huge))
	assert.Nil(t, PeekRPCCall(r))
}

// Package mcpserver hosts the MCP protocol surface: the tools, resources
// and prompts this server exposes, and their authentication requirements.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/api/middleware"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/auth"
)

// Version is stamped at build time.
var Version = "dev"

// Server wraps the MCP server and its exemption declarations.
type Server struct {
	mcp     *mcp.Server
	name    string
	exempt  []auth.ExemptEntry
	started time.Time
}

// New creates the MCP server with all tools, resources and prompts
// registered.
func New(name string) *Server {
	s := &Server{
		name:    name,
		started: time.Now(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    name,
			Title:   "MCP server with multi-scheme authentication",
			Version: Version,
		},
		&mcp.ServerOptions{
			Instructions: "Call echo to verify connectivity; whoami reports the authenticated identity.",
		},
	)

	s.addEchoTool()
	s.addWhoamiTool()
	s.addServerInfoResource()
	s.addGettingStartedPrompt()

	return s
}

// MCPServer returns the underlying MCP server for direct access (e.g., testing).
func (s *Server) MCPServer() *mcp.Server { return s.mcp }

// ExemptEntries lists the per-tool and per-resource auth requirements this
// host declares. Consumed by the dispatcher's exemption table at startup.
func (s *Server) ExemptEntries() []auth.ExemptEntry { return s.exempt }

// HTTPHandler returns the streamable HTTP transport handler. It carries no
// authentication of its own; mount it behind the auth middleware.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return s.mcp },
		&mcp.StreamableHTTPOptions{Stateless: false},
	)
}

// echo is reachable without credentials so clients can verify transport
// connectivity before configuring auth.
func (s *Server) addEchoTool() {
	s.exempt = append(s.exempt, auth.ExemptEntry{Name: "echo", RequireAuth: false})

	s.mcp.AddTool(
		&mcp.Tool{
			Name:        "echo",
			Title:       "Echo",
			Description: "Returns the given text unchanged. Useful for connectivity checks; requires no authentication.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text": map[string]any{
						"type":        "string",
						"description": "Text to echo back.",
					},
				},
				"required": []string{"text"},
			},
		},
		s.handleEcho,
	)
}

type echoArgs struct {
	Text string `json:"text"`
}

func (s *Server) handleEcho(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args echoArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	return textResult(args.Text), nil
}

// whoami is deliberately protected: it reports the identity established by
// the auth middleware.
func (s *Server) addWhoamiTool() {
	s.exempt = append(s.exempt, auth.ExemptEntry{Name: "whoami", RequireAuth: true})

	s.mcp.AddTool(
		&mcp.Tool{
			Name:        "whoami",
			Title:       "Who Am I",
			Description: "Reports how the current request was authenticated: scheme, principal and token payload if any.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		s.handleWhoami,
	)
}

func (s *Server) handleWhoami(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v := middleware.VerdictFromContext(ctx)
	if v == nil {
		return jsonResult(map[string]any{"authenticated": false})
	}
	out := map[string]any{
		"authenticated": v.Success,
		"scheme":        v.Scheme,
		"user":          v.Username,
	}
	if len(v.Payload) > 0 {
		out["payload"] = v.Payload
	}
	return jsonResult(out)
}

func (s *Server) addServerInfoResource() {
	const uri = "mcpserve://server-info"
	s.exempt = append(s.exempt, auth.ExemptEntry{Name: uri, RequireAuth: false})

	s.mcp.AddResource(
		&mcp.Resource{
			URI:         uri,
			Name:        "Server Info",
			Description: "Server name, version, uptime and supported auth schemes.",
			MIMEType:    "application/json",
		},
		func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			info := map[string]any{
				"name":    s.name,
				"version": Version,
				"uptime":  time.Since(s.started).String(),
				"auth_schemes": []auth.Scheme{
					auth.SchemePermanentToken,
					auth.SchemeBasic,
					auth.SchemeEncryptedToken,
					auth.SchemeNTLM,
					auth.SchemeCustom,
				},
			}
			data, _ := json.MarshalIndent(info, "", "  ")
			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{
					{URI: uri, MIMEType: "application/json", Text: string(data)},
				},
			}, nil
		},
	)
}

func (s *Server) addGettingStartedPrompt() {
	s.mcp.AddPrompt(
		&mcp.Prompt{
			Name:        "getting_started",
			Description: "Explains how to authenticate against this server and which operations are public.",
			Arguments: []*mcp.PromptArgument{
				{Name: "scheme", Description: "Auth scheme you plan to use (permanentServerTokens, basic, jwtToken, ntlm)", Required: false},
			},
		},
		func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			scheme := req.Params.Arguments["scheme"]
			if scheme == "" {
				scheme = "permanentServerTokens"
			}
			return &mcp.GetPromptResult{
				Description: "Getting started with " + s.name,
				Messages: []*mcp.PromptMessage{
					{
						Role: "user",
						Content: &mcp.TextContent{
							Text: fmt.Sprintf(`Connect to %s and authenticate using the %q scheme.

1. Call initialize and tools/list - these never require credentials.
2. Call the echo tool to verify the transport end to end.
3. Present your credential in the Authorization header and call whoami
   to confirm the server sees the identity you expect.`, s.name, scheme),
						},
					},
				},
			}, nil
		},
	)
}

// textResult creates a CallToolResult with a single text content block.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// jsonResult marshals v to indented JSON and wraps it in a CallToolResult.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return textResult(string(data)), nil
}

func parseArgs(req *mcp.CallToolRequest, dst any) error {
	if len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params.Arguments, dst); err != nil {
		return fmt.Errorf("parsing tool arguments: %w", err)
	}
	return nil
}

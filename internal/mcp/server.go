package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"drawdesk/internal/domain"
	"drawdesk/internal/scene"
	"drawdesk/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Backend is everything the tool catalogue needs from the canvas. The
// in-process CanvasService implements it directly; the stdio child mode
// implements it over the REST surface of the parent process.
type Backend interface {
	ListElements() ([]domain.Element, error)
	GetElement(id string) (domain.Element, error)
	CreateElement(raw domain.Element) (domain.Element, error)
	CreateBatch(raw []domain.Element) ([]domain.Element, error)
	UpdateElement(id string, patch map[string]any) (domain.Element, error)
	DeleteElement(id string) error
	ClearCanvas() (int, error)
	ReplaceElements(raw []domain.Element) (before, after int, err error)
	Search(q scene.Query) ([]domain.Element, error)
	Scene() (domain.Scene, error)
	SnapshotCreate(name string) (domain.Snapshot, error)
	SnapshotList() ([]domain.SnapshotInfo, error)
	SnapshotGet(name string) (domain.Snapshot, error)
	SnapshotRestore(name string) (int, error)
	FromMermaid(ctx context.Context, diagram string, config map[string]any) ([]domain.Element, error)
	ExportImage(ctx context.Context, format string, background bool) (service.ExportResult, error)
	SetViewport(ctx context.Context, req domain.ViewportRequest) (string, error)
	Clients() int
}

// Server is the AI tool gateway. It exposes the closed diagram-operation
// catalogue over JSON-RPC, on HTTP for agents and on stdio for the
// supervised child process.
type Server struct {
	mcp     *server.MCPServer
	backend Backend
}

// New creates and configures the gateway with all tools and resources.
func New(backend Backend) *Server {
	s := &Server{backend: backend}

	s.mcp = server.NewMCPServer(
		"drawdesk-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerElementTools()
	s.registerLayoutTools()
	s.registerSceneTools()
	s.registerViewTools()
	s.registerResources()

	return s
}

// ServeStdio starts the gateway on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// HTTPHandler returns the stateless streamable-HTTP transport for POST /mcp.
// Responses go back as plain JSON or a single SSE frame depending on what
// the client accepts.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp, server.WithStateLess(true))
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(b bool) *bool { return &b }

// elementIDsArg parses an element id list passed either as a JSON array or
// as a comma-separated string.
func elementIDsArg(args map[string]any, key string) ([]string, error) {
	switch v := args[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			id, ok := item.(string)
			if !ok || id == "" {
				return nil, fmt.Errorf("%s must contain element id strings", key)
			}
			out = append(out, id)
		}
		return out, nil
	case string:
		var out []string
		for _, id := range splitComma(v) {
			out = append(out, id)
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("%s is required", key)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s is required", key)
}

// elementsArg parses an element list passed either as a JSON array or as a
// JSON-encoded string.
func elementsArg(args map[string]any, key string) ([]domain.Element, error) {
	switch v := args[key].(type) {
	case []any:
		out := make([]domain.Element, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be an object", key, i)
			}
			out = append(out, domain.Element(m))
		}
		return out, nil
	case string:
		var out []domain.Element
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("invalid %s JSON: %w", key, err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s is required", key)
}

// objectArg parses an object passed either inline or as a JSON string.
func objectArg(args map[string]any, key string) (map[string]any, error) {
	switch v := args[key].(type) {
	case map[string]any:
		return v, nil
	case string:
		var out map[string]any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("invalid %s JSON: %w", key, err)
		}
		return out, nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("%s must be an object", key)
}

func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

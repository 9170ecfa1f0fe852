package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerResources() {
	// ── canvas://scene ─────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"canvas://scene",
		"Canvas Scene",
		mcp.WithMIMEType("application/json"),
	), s.handleSceneResource)

	// ── canvas://elements ──────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"canvas://elements",
		"Canvas Elements",
		mcp.WithMIMEType("application/json"),
	), s.handleElementsResource)
}

func (s *Server) handleSceneResource(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	sc, err := s.backend.Scene()
	if err != nil {
		return nil, err
	}
	data, _ := json.MarshalIndent(sc, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleElementsResource(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	els, err := s.backend.ListElements()
	if err != nil {
		return nil, err
	}
	data, _ := json.MarshalIndent(els, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

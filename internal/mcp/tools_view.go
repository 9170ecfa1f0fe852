package mcpserver

import (
	"context"
	"fmt"

	"drawdesk/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

// The tools here are correlated: they need a connected editor peer to do the
// actual rendering, and block until the peer answers or the deadline hits.

func (s *Server) registerViewTools() {
	s.mcp.AddTool(mcp.NewTool("create_from_mermaid",
		mcp.WithDescription("Convert a mermaid diagram into canvas elements. Requires a connected editor client."),
		mcp.WithString("mermaidDiagram", mcp.Description("Mermaid source text"), mcp.Required()),
		mcp.WithObject("config", mcp.Description("Mermaid renderer configuration (optional)")),
	), s.handleCreateFromMermaid)

	s.mcp.AddTool(mcp.NewTool("set_viewport",
		mcp.WithDescription("Move the editor viewport. Requires a connected editor client."),
		mcp.WithBoolean("scrollToContent", mcp.Description("Fit the viewport to the scene content")),
		mcp.WithString("scrollToElementId", mcp.Description("Center the viewport on this element")),
		mcp.WithNumber("zoom", mcp.Description("Zoom level")),
		mcp.WithNumber("offsetX", mcp.Description("Scroll offset X")),
		mcp.WithNumber("offsetY", mcp.Description("Scroll offset Y")),
	), s.handleSetViewport)

	s.mcp.AddTool(mcp.NewTool("export_to_image",
		mcp.WithDescription("Render the scene to png or svg. Requires a connected editor client."),
		mcp.WithString("format", mcp.Description("png (default) or svg")),
		mcp.WithBoolean("background", mcp.Description("Include the canvas background (default true)")),
	), s.handleExportToImage)

	s.mcp.AddTool(mcp.NewTool("get_canvas_screenshot",
		mcp.WithDescription("Render the scene to a png image result. Requires a connected editor client."),
	), s.handleGetCanvasScreenshot)
}

func (s *Server) handleCreateFromMermaid(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	diagram, _ := args["mermaidDiagram"].(string)
	if diagram == "" {
		return nil, fmt.Errorf("mermaidDiagram is required")
	}
	config, err := objectArg(args, "config")
	if err != nil {
		return nil, err
	}
	els, err := s.backend.FromMermaid(ctx, diagram, config)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(els))
	for i, el := range els {
		ids[i] = el.ID()
	}
	return jsonResult(map[string]any{"created": ids, "count": len(els)})
}

func (s *Server) handleSetViewport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	var vr domain.ViewportRequest
	if v, ok := args["scrollToContent"].(bool); ok {
		vr.ScrollToContent = &v
	}
	if v, ok := args["scrollToElementId"].(string); ok {
		vr.ScrollToElementID = v
	}
	if v, ok := args["zoom"].(float64); ok {
		vr.Zoom = &v
	}
	if v, ok := args["offsetX"].(float64); ok {
		vr.OffsetX = &v
	}
	if v, ok := args["offsetY"].(float64); ok {
		vr.OffsetY = &v
	}
	msg, err := s.backend.SetViewport(ctx, vr)
	if err != nil {
		return nil, err
	}
	if msg == "" {
		msg = "Viewport updated"
	}
	return textResult(msg), nil
}

func (s *Server) handleExportToImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	format, _ := args["format"].(string)
	if format == "" {
		format = "png"
	}
	if format != "png" && format != "svg" {
		return nil, fmt.Errorf("format must be png or svg, got %q", format)
	}
	background := true
	if v, ok := args["background"].(bool); ok {
		background = v
	}
	res, err := s.backend.ExportImage(ctx, format, background)
	if err != nil {
		return nil, err
	}
	if format == "svg" {
		return textResult(res.Data), nil
	}
	return jsonResult(map[string]any{"format": res.Format, "data": res.Data})
}

func (s *Server) handleGetCanvasScreenshot(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.backend.ExportImage(ctx, "png", true)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.ImageContent{Type: "image", Data: res.Data, MIMEType: "image/png"},
		},
	}, nil
}

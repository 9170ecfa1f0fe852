package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"drawdesk/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerSceneTools() {
	s.mcp.AddTool(mcp.NewTool("snapshot_scene",
		mcp.WithDescription("Capture a named in-memory snapshot of the scene. Re-using a name overwrites it."),
		mcp.WithString("name", mcp.Description("Snapshot name (optional, defaults to a timestamped name)")),
	), s.handleSnapshotScene)

	s.mcp.AddTool(mcp.NewTool("restore_snapshot",
		mcp.WithDescription("Replace the live scene with a named snapshot."),
		mcp.WithString("name", mcp.Description("Snapshot name"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRestoreSnapshot)

	s.mcp.AddTool(mcp.NewTool("import_scene",
		mcp.WithDescription("Adopt a supplied scene, either merged into or replacing the current one."),
		mcp.WithObject("scene", mcp.Description("Scene document with an elements array"), mcp.Required()),
		mcp.WithString("mode", mcp.Description("merge (default) or replace")),
	), s.handleImportScene)

	s.mcp.AddTool(mcp.NewTool("export_scene",
		mcp.WithDescription("Dump the canonical scene JSON, optionally writing it to a file."),
		mcp.WithString("filePath", mcp.Description("Write the document here instead of only returning it (optional)")),
	), s.handleExportScene)

	s.mcp.AddTool(mcp.NewTool("get_resource",
		mcp.WithDescription("Read-only projections of the workstation state."),
		mcp.WithString("resource", mcp.Description("One of: scene, elements, theme, library"), mcp.Required()),
	), s.handleGetResource)

	s.mcp.AddTool(mcp.NewTool("read_diagram_guide",
		mcp.WithDescription("Read the design guide for building good-looking diagrams on this canvas."),
	), s.handleReadDiagramGuide)

	s.mcp.AddTool(mcp.NewTool("export_to_excalidraw_url",
		mcp.WithDescription("Encode the scene into a shareable excalidraw.com URL fragment."),
	), s.handleExportToExcalidrawURL)
}

func (s *Server) handleSnapshotScene(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, _ := req.GetArguments()["name"].(string)
	if name == "" {
		name = "snap-" + time.Now().UTC().Format("20060102-150405")
	}
	snap, err := s.backend.SnapshotCreate(name)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{
		"name":         snap.Name,
		"elementCount": len(snap.Elements),
		"createdAt":    snap.CreatedAt,
	})
}

func (s *Server) handleRestoreSnapshot(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, _ := req.GetArguments()["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	n, err := s.backend.SnapshotRestore(name)
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Restored snapshot %q (%d elements)", name, n)), nil
}

func (s *Server) handleImportScene(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	doc, err := objectArg(args, "scene")
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("scene is required")
	}
	els, err := elementsArg(doc, "elements")
	if err != nil {
		return nil, err
	}

	mode, _ := args["mode"].(string)
	switch mode {
	case "", "merge":
		created, err := s.backend.CreateBatch(els)
		if err != nil {
			return nil, err
		}
		return textResult(fmt.Sprintf("Merged %d elements into the scene", len(created))), nil
	case "replace":
		before, after, err := s.backend.ReplaceElements(els)
		if err != nil {
			return nil, err
		}
		return textResult(fmt.Sprintf("Replaced scene: %d elements before, %d after", before, after)), nil
	default:
		return nil, fmt.Errorf("mode must be merge or replace, got %q", mode)
	}
}

func (s *Server) handleExportScene(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sc, err := s.backend.Scene()
	if err != nil {
		return nil, err
	}
	doc := sceneDocument(sc)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal scene: %w", err)
	}

	if path, _ := req.GetArguments()["filePath"].(string); path != "" {
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("write scene file: %w", err)
		}
		return textResult(fmt.Sprintf("Scene written to %s (%d elements)", path, len(sc.Elements))), nil
	}
	return textResult(string(data)), nil
}

func (s *Server) handleGetResource(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resource, _ := req.GetArguments()["resource"].(string)
	switch resource {
	case "scene":
		sc, err := s.backend.Scene()
		if err != nil {
			return nil, err
		}
		return jsonResult(sc)
	case "elements":
		els, err := s.backend.ListElements()
		if err != nil {
			return nil, err
		}
		return jsonResult(els)
	case "theme":
		sc, err := s.backend.Scene()
		if err != nil {
			return nil, err
		}
		background, _ := sc.AppState["viewBackgroundColor"].(string)
		return jsonResult(map[string]any{
			"theme":               "light",
			"viewBackgroundColor": background,
		})
	case "library":
		return jsonResult(map[string]any{
			"type":         "excalidrawlib",
			"version":      2,
			"libraryItems": []any{},
		})
	default:
		return nil, fmt.Errorf("resource must be one of scene, elements, theme, library, got %q", resource)
	}
}

func (s *Server) handleReadDiagramGuide(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return textResult(diagramGuide), nil
}

func (s *Server) handleExportToExcalidrawURL(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sc, err := s.backend.Scene()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(sceneDocument(sc))
	if err != nil {
		return nil, fmt.Errorf("marshal scene: %w", err)
	}
	fragment := base64.URLEncoding.EncodeToString(data)
	return textResult("https://excalidraw.com/#json=" + fragment), nil
}

// sceneDocument wraps the canonical scene in the .excalidraw envelope.
func sceneDocument(sc domain.Scene) map[string]any {
	return map[string]any{
		"type":     "excalidraw",
		"version":  2,
		"source":   "drawdesk",
		"elements": sc.Elements,
		"appState": sc.AppState,
		"files":    sc.Files,
	}
}

package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"drawdesk/internal/domain"
	"drawdesk/internal/scene"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerElementTools() {
	s.mcp.AddTool(mcp.NewTool("create_element",
		mcp.WithDescription("Create a single element on the canvas. Arrows/lines may reference endpoint elements by startId/endId to get bound automatically."),
		mcp.WithString("type", mcp.Description("Element type: rectangle, ellipse, diamond, text, line, arrow, freedraw, image, frame"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("X position")),
		mcp.WithNumber("y", mcp.Description("Y position")),
		mcp.WithNumber("width", mcp.Description("Width")),
		mcp.WithNumber("height", mcp.Description("Height")),
		mcp.WithString("text", mcp.Description("Text content (text elements and labels)")),
		mcp.WithString("strokeColor", mcp.Description("Stroke color hex (optional)")),
		mcp.WithString("backgroundColor", mcp.Description("Fill color hex (optional)")),
		mcp.WithString("startId", mcp.Description("Bind arrow start to this element id")),
		mcp.WithString("endId", mcp.Description("Bind arrow end to this element id")),
		mcp.WithObject("properties", mcp.Description("Extra element properties merged onto the record")),
	), s.handleCreateElement)

	s.mcp.AddTool(mcp.NewTool("batch_create_elements",
		mcp.WithDescription("Create multiple elements at once. Arrow start/end references resolve against the batch and the existing scene."),
		mcp.WithArray("elements", mcp.Description("Array of element objects"), mcp.Required()),
	), s.handleBatchCreateElements)

	s.mcp.AddTool(mcp.NewTool("update_element",
		mcp.WithDescription("Merge properties onto an existing element; untouched fields are preserved."),
		mcp.WithString("elementId", mcp.Description("Element ID to update"), mcp.Required()),
		mcp.WithObject("updates", mcp.Description("Properties to merge"), mcp.Required()),
	), s.handleUpdateElement)

	s.mcp.AddTool(mcp.NewTool("delete_element",
		mcp.WithDescription("Remove an element by ID."),
		mcp.WithString("elementId", mcp.Description("Element ID to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteElement)

	s.mcp.AddTool(mcp.NewTool("clear_canvas",
		mcp.WithDescription("Remove every element from the canvas."),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleClearCanvas)

	s.mcp.AddTool(mcp.NewTool("duplicate_elements",
		mcp.WithDescription("Deep-copy elements with fresh ids, shifted by an offset."),
		mcp.WithArray("elementIds", mcp.Description("IDs of the elements to duplicate"), mcp.Required()),
		mcp.WithNumber("offsetX", mcp.Description("Horizontal shift (default 20)")),
		mcp.WithNumber("offsetY", mcp.Description("Vertical shift (default 20)")),
	), s.handleDuplicateElements)

	s.mcp.AddTool(mcp.NewTool("query_elements",
		mcp.WithDescription("Find elements matching every given criterion."),
		mcp.WithString("type", mcp.Description("Single type tag to match")),
		mcp.WithString("types", mcp.Description("Comma-separated type tags")),
		mcp.WithString("textContains", mcp.Description("Case-insensitive substring of the text field")),
		mcp.WithNumber("minWidth", mcp.Description("Inclusive minimum width")),
		mcp.WithNumber("maxWidth", mcp.Description("Inclusive maximum width")),
		mcp.WithNumber("minHeight", mcp.Description("Inclusive minimum height")),
		mcp.WithNumber("maxHeight", mcp.Description("Inclusive maximum height")),
		mcp.WithObject("fields", mcp.Description("Arbitrary field equality filters, e.g. {\"strokeColor\":\"#ff0000\"}")),
	), s.handleQueryElements)

	s.mcp.AddTool(mcp.NewTool("get_element",
		mcp.WithDescription("Fetch one element by ID."),
		mcp.WithString("elementId", mcp.Description("Element ID"), mcp.Required()),
	), s.handleGetElement)

	s.mcp.AddTool(mcp.NewTool("describe_scene",
		mcp.WithDescription("Human-readable summary of the scene: counts, bounds, and one line per element."),
	), s.handleDescribeScene)
}

// ── Handlers ────────────────────────────────────────────────

func (s *Server) handleCreateElement(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	el := domain.Element{}
	props, err := objectArg(args, "properties")
	if err != nil {
		return nil, err
	}
	for k, v := range props {
		el[k] = v
	}
	for _, key := range []string{"type", "x", "y", "width", "height", "text", "strokeColor", "backgroundColor"} {
		if v, ok := args[key]; ok {
			el[key] = v
		}
	}
	if id, ok := args["startId"].(string); ok && id != "" {
		el["start"] = map[string]any{"id": id}
	}
	if id, ok := args["endId"].(string); ok && id != "" {
		el["end"] = map[string]any{"id": id}
	}

	created, err := s.backend.CreateElement(el)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"id": created.ID(), "element": created})
}

func (s *Server) handleBatchCreateElements(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	els, err := elementsArg(req.GetArguments(), "elements")
	if err != nil {
		return nil, err
	}
	created, err := s.backend.CreateBatch(els)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(created))
	for i, el := range created {
		ids[i] = el.ID()
	}
	return jsonResult(map[string]any{"created": ids, "count": len(created)})
}

func (s *Server) handleUpdateElement(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, _ := args["elementId"].(string)
	if id == "" {
		return nil, fmt.Errorf("elementId is required")
	}
	updates, err := objectArg(args, "updates")
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("updates is required")
	}
	el, err := s.backend.UpdateElement(id, updates)
	if err != nil {
		return nil, err
	}
	return jsonResult(el)
}

func (s *Server) handleDeleteElement(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, _ := req.GetArguments()["elementId"].(string)
	if id == "" {
		return nil, fmt.Errorf("elementId is required")
	}
	if err := s.backend.DeleteElement(id); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Element %s deleted", id)), nil
}

func (s *Server) handleClearCanvas(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.backend.ClearCanvas()
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Canvas cleared (%d elements removed)", n)), nil
}

func (s *Server) handleDuplicateElements(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ids, err := elementIDsArg(args, "elementIds")
	if err != nil {
		return nil, err
	}
	offsetX, offsetY := 20.0, 20.0
	if v, ok := args["offsetX"].(float64); ok {
		offsetX = v
	}
	if v, ok := args["offsetY"].(float64); ok {
		offsetY = v
	}

	copies := make([]domain.Element, 0, len(ids))
	for _, id := range ids {
		el, err := s.backend.GetElement(id)
		if err != nil {
			return nil, err
		}
		dup := el.Clone()
		dup["id"] = scene.NewElementID()
		dup["x"] = dup.X() + offsetX
		dup["y"] = dup.Y() + offsetY
		copies = append(copies, dup)
	}
	created, err := s.backend.CreateBatch(copies)
	if err != nil {
		return nil, err
	}
	newIDs := make([]string, len(created))
	for i, el := range created {
		newIDs[i] = el.ID()
	}
	return jsonResult(map[string]any{"duplicated": newIDs, "count": len(created)})
}

func (s *Server) handleQueryElements(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	q := scene.Query{Fields: map[string]string{}}
	if t, ok := args["type"].(string); ok && t != "" {
		q.Types = append(q.Types, t)
	}
	if ts, ok := args["types"].(string); ok && ts != "" {
		q.Types = append(q.Types, splitComma(ts)...)
	}
	if tc, ok := args["textContains"].(string); ok {
		q.TextContains = tc
	}
	for key, bound := range map[string]**float64{
		"minWidth":  &q.MinWidth,
		"maxWidth":  &q.MaxWidth,
		"minHeight": &q.MinHeight,
		"maxHeight": &q.MaxHeight,
	} {
		if v, ok := args[key].(float64); ok {
			f := v
			*bound = &f
		}
	}
	fields, err := objectArg(args, "fields")
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		q.Fields[k] = scene.Stringify(v)
	}

	els, err := s.backend.Search(q)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"elements": els, "count": len(els)})
}

func (s *Server) handleGetElement(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, _ := req.GetArguments()["elementId"].(string)
	if id == "" {
		return nil, fmt.Errorf("elementId is required")
	}
	el, err := s.backend.GetElement(id)
	if err != nil {
		return nil, err
	}
	return jsonResult(el)
}

func (s *Server) handleDescribeScene(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	els, err := s.backend.ListElements()
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return textResult("The canvas is empty."), nil
	}

	counts := map[domain.ElementType]int{}
	minX, minY := els[0].X(), els[0].Y()
	maxX, maxY := minX, minY
	for _, el := range els {
		counts[el.Type()]++
		if el.X() < minX {
			minX = el.X()
		}
		if el.Y() < minY {
			minY = el.Y()
		}
		if r := el.X() + el.Width(); r > maxX {
			maxX = r
		}
		if b := el.Y() + el.Height(); b > maxY {
			maxY = b
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Scene with %d elements", len(els))
	fmt.Fprintf(&sb, " spanning (%.0f, %.0f) to (%.0f, %.0f).\n", minX, minY, maxX, maxY)
	sb.WriteString("Counts:")
	for t, n := range counts {
		fmt.Fprintf(&sb, " %s=%d", t, n)
	}
	sb.WriteString("\n\nElements (back to front):\n")
	for _, el := range els {
		fmt.Fprintf(&sb, "- %s %s at (%.0f, %.0f) %gx%g", el.ID(), el.Type(), el.X(), el.Y(), el.Width(), el.Height())
		if text := el.Str("text"); text != "" {
			fmt.Fprintf(&sb, " %q", text)
		}
		if el.Str("locked") == "true" || el["locked"] == true {
			sb.WriteString(" [locked]")
		}
		sb.WriteByte('\n')
	}
	return textResult(sb.String()), nil
}

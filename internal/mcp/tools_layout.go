package mcpserver

import (
	"context"
	"fmt"
	"sort"

	"drawdesk/internal/domain"
	"drawdesk/internal/scene"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerLayoutTools() {
	s.mcp.AddTool(mcp.NewTool("group_elements",
		mcp.WithDescription("Put elements into a shared group so the editor moves them together."),
		mcp.WithArray("elementIds", mcp.Description("IDs of the elements to group"), mcp.Required()),
	), s.handleGroupElements)

	s.mcp.AddTool(mcp.NewTool("ungroup_elements",
		mcp.WithDescription("Dissolve a group by removing its id from every member."),
		mcp.WithString("groupId", mcp.Description("Group id to dissolve"), mcp.Required()),
	), s.handleUngroupElements)

	s.mcp.AddTool(mcp.NewTool("lock_elements",
		mcp.WithDescription("Lock elements against editor interaction."),
		mcp.WithArray("elementIds", mcp.Description("IDs of the elements to lock"), mcp.Required()),
	), s.handleLockElements)

	s.mcp.AddTool(mcp.NewTool("unlock_elements",
		mcp.WithDescription("Unlock previously locked elements."),
		mcp.WithArray("elementIds", mcp.Description("IDs of the elements to unlock"), mcp.Required()),
	), s.handleUnlockElements)

	s.mcp.AddTool(mcp.NewTool("align_elements",
		mcp.WithDescription("Align elements against their combined bounding box."),
		mcp.WithArray("elementIds", mcp.Description("IDs of the elements to align"), mcp.Required()),
		mcp.WithString("alignment", mcp.Description("One of: left, right, top, bottom, center, middle"), mcp.Required()),
	), s.handleAlignElements)

	s.mcp.AddTool(mcp.NewTool("distribute_elements",
		mcp.WithDescription("Space elements evenly between the outer bounds of the selection."),
		mcp.WithArray("elementIds", mcp.Description("IDs of the elements to distribute"), mcp.Required()),
		mcp.WithString("direction", mcp.Description("horizontal or vertical"), mcp.Required()),
	), s.handleDistributeElements)
}

// fetchElements loads every requested element, failing on the first unknown
// id.
func (s *Server) fetchElements(ids []string) ([]domain.Element, error) {
	out := make([]domain.Element, 0, len(ids))
	for _, id := range ids {
		el, err := s.backend.GetElement(id)
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, nil
}

func (s *Server) handleGroupElements(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := elementIDsArg(req.GetArguments(), "elementIds")
	if err != nil {
		return nil, err
	}
	if len(ids) < 2 {
		return nil, fmt.Errorf("grouping needs at least two elements")
	}
	els, err := s.fetchElements(ids)
	if err != nil {
		return nil, err
	}

	groupID := scene.NewElementID()
	for _, el := range els {
		groupIds := append(groupIDsOf(el), groupID)
		if _, err := s.backend.UpdateElement(el.ID(), map[string]any{"groupIds": groupIds}); err != nil {
			return nil, err
		}
	}
	return jsonResult(map[string]any{"groupId": groupID, "count": len(els)})
}

func (s *Server) handleUngroupElements(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groupID, _ := req.GetArguments()["groupId"].(string)
	if groupID == "" {
		return nil, fmt.Errorf("groupId is required")
	}
	els, err := s.backend.ListElements()
	if err != nil {
		return nil, err
	}
	updated := 0
	for _, el := range els {
		groupIds := groupIDsOf(el)
		filtered := groupIds[:0]
		for _, g := range groupIds {
			if g != groupID {
				filtered = append(filtered, g)
			}
		}
		if len(filtered) == len(groupIds) {
			continue
		}
		if _, err := s.backend.UpdateElement(el.ID(), map[string]any{"groupIds": filtered}); err != nil {
			return nil, err
		}
		updated++
	}
	return textResult(fmt.Sprintf("Removed group %s from %d elements", groupID, updated)), nil
}

func groupIDsOf(el domain.Element) []string {
	switch v := el["groupIds"].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, g := range v {
			if id, ok := g.(string); ok {
				out = append(out, id)
			}
		}
		return out
	}
	return nil
}

func (s *Server) handleLockElements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.setLocked(req, true)
}

func (s *Server) handleUnlockElements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.setLocked(req, false)
}

func (s *Server) setLocked(req mcp.CallToolRequest, locked bool) (*mcp.CallToolResult, error) {
	ids, err := elementIDsArg(req.GetArguments(), "elementIds")
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, err := s.backend.UpdateElement(id, map[string]any{"locked": locked}); err != nil {
			return nil, err
		}
	}
	verb := "Locked"
	if !locked {
		verb = "Unlocked"
	}
	return textResult(fmt.Sprintf("%s %d elements", verb, len(ids))), nil
}

func (s *Server) handleAlignElements(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ids, err := elementIDsArg(args, "elementIds")
	if err != nil {
		return nil, err
	}
	alignment, _ := args["alignment"].(string)
	if len(ids) < 2 {
		return nil, fmt.Errorf("alignment needs at least two elements")
	}
	els, err := s.fetchElements(ids)
	if err != nil {
		return nil, err
	}

	minX, minY := els[0].X(), els[0].Y()
	maxX := minX + els[0].Width()
	maxY := minY + els[0].Height()
	for _, el := range els[1:] {
		minX = min(minX, el.X())
		minY = min(minY, el.Y())
		maxX = max(maxX, el.X()+el.Width())
		maxY = max(maxY, el.Y()+el.Height())
	}
	// center/middle reference is the bounding-box midpoint.
	centerX := (minX + maxX) / 2
	centerY := (minY + maxY) / 2

	for _, el := range els {
		patch := map[string]any{}
		switch alignment {
		case "left":
			patch["x"] = minX
		case "right":
			patch["x"] = maxX - el.Width()
		case "top":
			patch["y"] = minY
		case "bottom":
			patch["y"] = maxY - el.Height()
		case "center":
			patch["x"] = centerX - el.Width()/2
		case "middle":
			patch["y"] = centerY - el.Height()/2
		default:
			return nil, fmt.Errorf("alignment must be one of left, right, top, bottom, center, middle, got %q", alignment)
		}
		if _, err := s.backend.UpdateElement(el.ID(), patch); err != nil {
			return nil, err
		}
	}
	return textResult(fmt.Sprintf("Aligned %d elements %s", len(els), alignment)), nil
}

func (s *Server) handleDistributeElements(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ids, err := elementIDsArg(args, "elementIds")
	if err != nil {
		return nil, err
	}
	direction, _ := args["direction"].(string)
	if direction != "horizontal" && direction != "vertical" {
		return nil, fmt.Errorf("direction must be horizontal or vertical, got %q", direction)
	}
	if len(ids) < 3 {
		return nil, fmt.Errorf("distribution needs at least three elements")
	}
	els, err := s.fetchElements(ids)
	if err != nil {
		return nil, err
	}

	horizontal := direction == "horizontal"
	pos := func(el domain.Element) float64 {
		if horizontal {
			return el.X()
		}
		return el.Y()
	}
	size := func(el domain.Element) float64 {
		if horizontal {
			return el.Width()
		}
		return el.Height()
	}

	sort.SliceStable(els, func(i, j int) bool { return pos(els[i]) < pos(els[j]) })

	first, last := els[0], els[len(els)-1]
	span := pos(last) + size(last) - pos(first)
	total := 0.0
	for _, el := range els {
		total += size(el)
	}
	gap := (span - total) / float64(len(els)-1)

	cursor := pos(first) + size(first) + gap
	for _, el := range els[1 : len(els)-1] {
		patch := map[string]any{}
		if horizontal {
			patch["x"] = cursor
		} else {
			patch["y"] = cursor
		}
		if _, err := s.backend.UpdateElement(el.ID(), patch); err != nil {
			return nil, err
		}
		cursor += size(el) + gap
	}
	return textResult(fmt.Sprintf("Distributed %d elements %sly", len(els), direction)), nil
}

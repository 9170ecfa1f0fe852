package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"drawdesk/internal/domain"
	"drawdesk/internal/scene"
)

// ── Elements ───────────────────────────────────────────────

func (s *Server) handleElementsList(w http.ResponseWriter, _ *http.Request) {
	els, _ := s.svc.ListElements()
	ok(w, map[string]any{"elements": els, "count": len(els)})
}

func (s *Server) handleElementCreate(w http.ResponseWriter, r *http.Request) {
	var raw domain.Element
	if err := decodeJSON(w, r, &raw); err != nil {
		fail(w, err)
		return
	}
	el, err := s.svc.CreateElement(raw)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]any{"element": el})
}

func (s *Server) handleElementGet(w http.ResponseWriter, r *http.Request) {
	el, err := s.svc.GetElement(r.PathValue("id"))
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]any{"element": el})
}

func (s *Server) handleElementPut(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := decodeJSON(w, r, &patch); err != nil {
		fail(w, err)
		return
	}
	el, err := s.svc.UpdateElement(r.PathValue("id"), patch)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]any{"element": el})
}

func (s *Server) handleElementDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.DeleteElement(id); err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]any{"deleted": id})
}

func (s *Server) handleElementsClear(w http.ResponseWriter, _ *http.Request) {
	n, _ := s.svc.ClearCanvas()
	ok(w, map[string]any{"cleared": n})
}

func (s *Server) handleElementsBatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Elements []domain.Element `json:"elements"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		fail(w, err)
		return
	}
	els, err := s.svc.CreateBatch(body.Elements)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]any{"elements": els, "count": len(els)})
}

func (s *Server) handleElementsSync(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Elements []domain.Element `json:"elements"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		fail(w, err)
		return
	}
	before, after, err := s.svc.ReplaceElements(body.Elements)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]any{
		"beforeCount": before,
		"afterCount":  after,
		"syncedAt":    time.Now().UTC().Format(time.RFC3339),
	})
}

// ── Search ─────────────────────────────────────────────────

// reservedSearchParams are the query keys with dedicated semantics; every
// other key becomes a string-equality field filter.
var reservedSearchParams = map[string]bool{
	"type": true, "types": true,
	"minWidth": true, "maxWidth": true,
	"minHeight": true, "maxHeight": true,
	"textContains": true,
}

func (s *Server) handleElementsSearch(w http.ResponseWriter, r *http.Request) {
	q, err := parseSearchQuery(r.URL.Query())
	if err != nil {
		fail(w, err)
		return
	}
	els, _ := s.svc.Search(q)
	ok(w, map[string]any{"elements": els, "count": len(els)})
}

func parseSearchQuery(values url.Values) (scene.Query, error) {
	q := scene.Query{Fields: map[string]string{}}
	if t := values.Get("type"); t != "" {
		q.Types = append(q.Types, t)
	}
	if ts := values.Get("types"); ts != "" {
		for _, t := range strings.Split(ts, ",") {
			if t = strings.TrimSpace(t); t != "" {
				q.Types = append(q.Types, t)
			}
		}
	}
	for key, bound := range map[string]**float64{
		"minWidth":  &q.MinWidth,
		"maxWidth":  &q.MaxWidth,
		"minHeight": &q.MinHeight,
		"maxHeight": &q.MaxHeight,
	} {
		raw := values.Get(key)
		if raw == "" {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return q, invalidf("%s must be a number", key)
		}
		*bound = &f
	}
	q.TextContains = values.Get("textContains")
	for key := range values {
		if !reservedSearchParams[key] {
			q.Fields[key] = values.Get(key)
		}
	}
	return q, nil
}

// ── Correlated endpoints ───────────────────────────────────

func (s *Server) handleFromMermaid(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MermaidDiagram string         `json:"mermaidDiagram"`
		Config         map[string]any `json:"config"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		fail(w, err)
		return
	}
	if body.MermaidDiagram == "" {
		fail(w, invalidf("mermaidDiagram is required"))
		return
	}
	els, err := s.svc.FromMermaid(r.Context(), body.MermaidDiagram, body.Config)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]any{"elements": els, "count": len(els)})
}

func (s *Server) handleExportImage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Format     string `json:"format"`
		Background *bool  `json:"background"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		fail(w, err)
		return
	}
	if body.Format != "png" && body.Format != "svg" {
		fail(w, invalidf("format must be \"png\" or \"svg\""))
		return
	}
	background := true
	if body.Background != nil {
		background = *body.Background
	}
	res, err := s.svc.ExportImage(r.Context(), body.Format, background)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]any{"format": res.Format, "data": res.Data})
}

func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	var req domain.ViewportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, err)
		return
	}
	msg, err := s.svc.SetViewport(r.Context(), req)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]any{"message": msg})
}

// ── Correlated result intake ───────────────────────────────
//
// A result for an unknown requestId answers 200: the pending call has
// already timed out or been superseded, and that is the protocol contract.

func (s *Server) handleFromMermaidResult(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RequestID string           `json:"requestId"`
		Elements  []domain.Element `json:"elements"`
		Error     string           `json:"error"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		fail(w, err)
		return
	}
	if body.RequestID == "" {
		fail(w, invalidf("requestId is required"))
		return
	}
	s.svc.ResolveMermaid(body.RequestID, body.Elements, body.Error)
	ok(w, nil)
}

func (s *Server) handleExportImageResult(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RequestID string `json:"requestId"`
		Format    string `json:"format"`
		Data      string `json:"data"`
		Error     string `json:"error"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		fail(w, err)
		return
	}
	if body.RequestID == "" {
		fail(w, invalidf("requestId is required"))
		return
	}
	s.svc.ResolveExport(body.RequestID, body.Format, body.Data, body.Error)
	ok(w, nil)
}

func (s *Server) handleViewportResult(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RequestID string `json:"requestId"`
		Success   *bool  `json:"success"`
		Message   string `json:"message"`
		Error     string `json:"error"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		fail(w, err)
		return
	}
	if body.RequestID == "" {
		fail(w, invalidf("requestId is required"))
		return
	}
	success := body.Success == nil || *body.Success
	s.svc.ResolveViewport(body.RequestID, success, body.Message, body.Error)
	ok(w, nil)
}

// ── Snapshots ──────────────────────────────────────────────

func (s *Server) handleSnapshotCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		fail(w, err)
		return
	}
	if body.Name == "" {
		fail(w, invalidf("name is required"))
		return
	}
	snap, err := s.svc.SnapshotCreate(body.Name)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]any{"snapshot": domain.SnapshotInfo{
		Name:         snap.Name,
		ElementCount: len(snap.Elements),
		CreatedAt:    snap.CreatedAt,
	}})
}

func (s *Server) handleSnapshotList(w http.ResponseWriter, _ *http.Request) {
	infos, _ := s.svc.SnapshotList()
	ok(w, map[string]any{"snapshots": infos, "count": len(infos)})
}

func (s *Server) handleSnapshotGet(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.SnapshotGet(r.PathValue("name"))
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]any{"snapshot": snap})
}

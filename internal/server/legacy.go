package server

import (
	"net/http"

	"drawdesk/internal/domain"
)

// The legacy surface predates the /api routes and answers raw documents
// instead of {success, ...} envelopes. Kept verbatim for old clients.

func (s *Server) handleLegacyCanvasGet(w http.ResponseWriter, _ *http.Request) {
	sc, _ := s.svc.Scene()
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleLegacyCanvasPost(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Elements []domain.Element `json:"elements"`
		AppState map[string]any   `json:"appState"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		fail(w, err)
		return
	}
	if _, _, err := s.svc.ReplaceElements(body.Elements); err != nil {
		fail(w, err)
		return
	}
	if body.AppState != nil {
		s.svc.Store().SetAppState(body.AppState)
	}
	sc, _ := s.svc.Scene()
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleLegacyElementsList(w http.ResponseWriter, _ *http.Request) {
	els, _ := s.svc.ListElements()
	writeJSON(w, http.StatusOK, els)
}

func (s *Server) handleLegacyElementCreate(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, el)
}

func (s *Server) handleLegacyElementGet(w http.ResponseWriter, r *http.Request) {
	el, err := s.svc.GetElement(r.PathValue("id"))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

func (s *Server) handleLegacyElementPut(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, el)
}

func (s *Server) handleLegacyElementDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteElement(r.PathValue("id")); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleLegacyClear(w http.ResponseWriter, _ *http.Request) {
	n, _ := s.svc.ClearCanvas()
	writeJSON(w, http.StatusOK, map[string]any{"cleared": n})
}

// handleLegacySnapshot dumps the scene as an .excalidraw-shaped document for
// the editor collaborator's save path.
func (s *Server) handleLegacySnapshot(w http.ResponseWriter, _ *http.Request) {
	sc, _ := s.svc.Scene()
	writeJSON(w, http.StatusOK, map[string]any{
		"type":     "excalidraw",
		"version":  2,
		"source":   "drawdesk",
		"elements": sc.Elements,
		"appState": sc.AppState,
		"files":    sc.Files,
	})
}

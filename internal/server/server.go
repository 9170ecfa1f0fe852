package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"drawdesk/internal/hub"
	"drawdesk/internal/service"
)

// Server hosts the REST facade, the WebSocket facade, and the mounted tool
// gateway on one listener.
type Server struct {
	svc      *service.CanvasService
	bus      *hub.Bus
	mcp      http.Handler
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New wires the server. mcpHandler is mounted at /mcp; pass nil to disable
// the tool gateway (tests).
func New(svc *service.CanvasService, bus *hub.Bus, mcpHandler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		svc:    svc,
		bus:    bus,
		mcp:    mcpHandler,
		logger: logger.With("component", "server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  8192,
			WriteBufferSize: 8192,
			// Single-user localhost; origins are not enforced.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the full route table wrapped in CORS and panic recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Legacy surface, kept verbatim for backward compatibility.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /canvas", s.handleLegacyCanvasGet)
	mux.HandleFunc("POST /canvas", s.handleLegacyCanvasPost)
	mux.HandleFunc("GET /elements", s.handleLegacyElementsList)
	mux.HandleFunc("POST /elements", s.handleLegacyElementCreate)
	mux.HandleFunc("GET /elements/{id}", s.handleLegacyElementGet)
	mux.HandleFunc("PUT /elements/{id}", s.handleLegacyElementPut)
	mux.HandleFunc("DELETE /elements/{id}", s.handleLegacyElementDelete)
	mux.HandleFunc("POST /clear", s.handleLegacyClear)
	mux.HandleFunc("GET /snapshot", s.handleLegacySnapshot)

	// Primary surface.
	mux.HandleFunc("GET /api/elements", s.handleElementsList)
	mux.HandleFunc("POST /api/elements", s.handleElementCreate)
	mux.HandleFunc("GET /api/elements/search", s.handleElementsSearch)
	mux.HandleFunc("POST /api/elements/batch", s.handleElementsBatch)
	mux.HandleFunc("POST /api/elements/sync", s.handleElementsSync)
	mux.HandleFunc("GET /api/elements/{id}", s.handleElementGet)
	mux.HandleFunc("PUT /api/elements/{id}", s.handleElementPut)
	mux.HandleFunc("DELETE /api/elements/clear", s.handleElementsClear)
	mux.HandleFunc("DELETE /api/elements/{id}", s.handleElementDelete)

	mux.HandleFunc("POST /api/elements/from-mermaid", s.handleFromMermaid)
	mux.HandleFunc("POST /api/elements/from-mermaid/result", s.handleFromMermaidResult)
	mux.HandleFunc("POST /api/export/image", s.handleExportImage)
	mux.HandleFunc("POST /api/export/image/result", s.handleExportImageResult)
	mux.HandleFunc("POST /api/viewport", s.handleViewport)
	mux.HandleFunc("POST /api/viewport/result", s.handleViewportResult)

	mux.HandleFunc("POST /api/snapshots", s.handleSnapshotCreate)
	mux.HandleFunc("GET /api/snapshots", s.handleSnapshotList)
	mux.HandleFunc("GET /api/snapshots/{name}", s.handleSnapshotGet)
	mux.HandleFunc("GET /api/sync/status", s.handleSyncStatus)

	// WebSocket upgrades share the listener with HTTP.
	mux.HandleFunc("/ws", s.handleWebSocket)

	if s.mcp != nil {
		mux.Handle("/mcp", s.mcp)
	}

	return s.recoverMiddleware(corsMiddleware(mux))
}

// corsMiddleware is permissive by design: single-user localhost.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverMiddleware catches handler panics at the boundary and answers a
// plain 500 without leaking a stack trace.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("handler panic", "path", r.URL.Path, "panic", rec)
				failMsg(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.svc.Clients(),
	})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, _ *http.Request) {
	ok(w, s.svc.Status())
}

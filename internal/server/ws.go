package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"drawdesk/internal/domain"
	"drawdesk/internal/hub"
)

// handleWebSocket upgrades the connection, attaches the peer to the bus with
// the three initial frames, and pumps inbound mutations until the peer goes
// away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	peer := hub.NewPeer(conn)
	go peer.Run()

	sc, _ := s.svc.Scene()
	s.bus.Attach(peer,
		map[string]any{"type": domain.MsgInitialElements, "elements": sc.Elements},
		map[string]any{"type": domain.MsgSyncStatus, "status": "connected", "clients": s.bus.Clients()},
		map[string]any{"type": domain.MsgCanvasSync, "data": sc},
	)

	defer s.bus.Detach(peer)
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		s.handleInbound(peer, data)
	}
}

type inboundFrame struct {
	Type     string           `json:"type"`
	Data     json.RawMessage  `json:"data"`
	Element  domain.Element   `json:"element"`
	ID       string           `json:"id"`
	Updates  map[string]any   `json:"updates"`
	Elements []domain.Element `json:"elements"`
}

// handleInbound applies one editor-peer mutation. The sender is excluded
// from the re-broadcast; unknown type tags are ignored.
func (s *Server) handleInbound(peer *hub.Peer, data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.logger.Warn("drop malformed peer frame", "peer", peer.ID(), "error", err)
		return
	}

	var err error
	switch frame.Type {
	case domain.MsgCanvasSync:
		elements := frame.Elements
		appState := map[string]any(nil)
		if len(frame.Data) > 0 {
			var payload struct {
				Elements []domain.Element `json:"elements"`
				AppState map[string]any   `json:"appState"`
			}
			if jerr := json.Unmarshal(frame.Data, &payload); jerr != nil {
				s.logger.Warn("drop malformed canvas_sync payload", "peer", peer.ID(), "error", jerr)
				return
			}
			elements = payload.Elements
			appState = payload.AppState
		}
		err = s.svc.ApplyPeerSync(peer, elements, appState)
	case domain.MsgElementCreated:
		if frame.Element == nil {
			return
		}
		err = s.svc.ApplyPeerCreate(peer, frame.Element)
	case domain.MsgElementUpdated:
		if frame.ID == "" {
			return
		}
		err = s.svc.ApplyPeerUpdate(peer, frame.ID, frame.Updates)
	case domain.MsgElementDeleted:
		if frame.ID == "" {
			return
		}
		err = s.svc.ApplyPeerDelete(peer, frame.ID)
	default:
		return
	}

	if err != nil {
		s.logger.Warn("peer mutation rejected", "peer", peer.ID(), "type", frame.Type, "error", err)
	}
}

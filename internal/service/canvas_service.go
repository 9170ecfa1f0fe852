package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"drawdesk/internal/domain"
	"drawdesk/internal/hub"
	"drawdesk/internal/scene"
)

// ─────────────────────────────────────────────────────────────
// Canvas Service — the mutation pipeline behind every facade
// ─────────────────────────────────────────────────────────────

// ErrNoPeers is returned by correlated calls when no editor client is
// connected to answer them.
var ErrNoPeers = errors.New("no frontend client connected")

// CanvasService owns the scene mutation pipeline: normalize, resolve
// bindings, store, broadcast. Every accepted mutation fans out a canvas_sync
// frame reflecting the post-mutation state before the call returns.
type CanvasService struct {
	store   *scene.Store
	emitter Emitter
	corr    *hub.Correlator
	started time.Time
}

// NewCanvasService wires the service over its collaborators.
func NewCanvasService(store *scene.Store, emitter Emitter, corr *hub.Correlator) *CanvasService {
	return &CanvasService{
		store:   store,
		emitter: emitter,
		corr:    corr,
		started: time.Now(),
	}
}

// Store exposes the underlying scene store for read-side wiring.
func (s *CanvasService) Store() *scene.Store { return s.store }

// Clients returns the connected peer count.
func (s *CanvasService) Clients() int { return s.emitter.Clients() }

// ── Reads ──────────────────────────────────────────────────

func (s *CanvasService) ListElements() ([]domain.Element, error) {
	return s.store.List(), nil
}

func (s *CanvasService) GetElement(id string) (domain.Element, error) {
	return s.store.Get(id)
}

func (s *CanvasService) Search(q scene.Query) ([]domain.Element, error) {
	return s.store.Search(q), nil
}

func (s *CanvasService) Scene() (domain.Scene, error) {
	return s.store.Scene(), nil
}

// Status summarizes the service for /api/sync/status.
func (s *CanvasService) Status() map[string]any {
	return map[string]any{
		"connectedClients": s.emitter.Clients(),
		"elementCount":     s.store.Count(),
		"snapshotCount":    s.store.SnapshotCount(),
		"uptimeMs":         time.Since(s.started).Milliseconds(),
	}
}

// ── Mutations ──────────────────────────────────────────────

// CreateElement normalizes one inbound element, resolves arrow references
// against the live store, and inserts it.
func (s *CanvasService) CreateElement(raw domain.Element) (domain.Element, error) {
	el, err := scene.Normalize(raw)
	if err != nil {
		return nil, err
	}
	scene.ResolveBindings([]domain.Element{el}, s.store.Get0)
	s.store.Put(el)
	s.emitter.Emit(map[string]any{"type": domain.MsgElementCreated, "element": el})
	s.emitCanvasSync(nil)
	return el, nil
}

// dropTombstones filters out elements a peer marked deleted; the store keeps
// no tombstones.
func dropTombstones(raw []domain.Element) []domain.Element {
	out := make([]domain.Element, 0, len(raw))
	for _, el := range raw {
		if el["isDeleted"] == true {
			continue
		}
		out = append(out, el)
	}
	return out
}

// CreateBatch normalizes every element, then resolves bindings over the
// whole batch so intra-batch references work, then inserts all in order.
func (s *CanvasService) CreateBatch(raw []domain.Element) ([]domain.Element, error) {
	raw = dropTombstones(raw)
	els := make([]domain.Element, 0, len(raw))
	for i, r := range raw {
		el, err := scene.Normalize(r)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		els = append(els, el)
	}
	scene.ResolveBindings(els, s.store.Get0)
	for _, el := range els {
		s.store.Put(el)
	}
	s.emitter.Emit(map[string]any{
		"type":     domain.MsgElementsBatchCreated,
		"elements": els,
		"count":    len(els),
	})
	s.emitCanvasSync(nil)
	return els, nil
}

// UpdateElement merges the patch onto the stored element and bumps its
// version fields. Fields absent from the patch, angle included, survive.
func (s *CanvasService) UpdateElement(id string, patch map[string]any) (domain.Element, error) {
	el, err := s.store.Patch(id, patch)
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(map[string]any{"type": domain.MsgElementUpdated, "element": el})
	s.emitCanvasSync(nil)
	return el, nil
}

// DeleteElement removes the element; tombstones are not retained.
func (s *CanvasService) DeleteElement(id string) error {
	if !s.store.Delete(id) {
		return fmt.Errorf("element %s: %w", id, scene.ErrNotFound)
	}
	s.emitter.Emit(map[string]any{"type": domain.MsgElementDeleted, "id": id})
	s.emitCanvasSync(nil)
	return nil
}

// ClearCanvas removes every element and returns the removed count.
func (s *CanvasService) ClearCanvas() (int, error) {
	n := s.store.Clear()
	s.emitter.Emit(map[string]any{"type": domain.MsgCanvasCleared})
	s.emitCanvasSync(nil)
	return n, nil
}

// ReplaceElements swaps the live store for the provided ordered list. Each
// element is normalized first so store invariants hold for any input.
func (s *CanvasService) ReplaceElements(raw []domain.Element) (before, after int, err error) {
	raw = dropTombstones(raw)
	els := make([]domain.Element, 0, len(raw))
	for i, r := range raw {
		el, nerr := scene.Normalize(r)
		if nerr != nil {
			return 0, 0, fmt.Errorf("element %d: %w", i, nerr)
		}
		els = append(els, el)
	}
	scene.ResolveBindings(els, nil)
	before, after = s.store.Replace(els)
	s.emitter.Emit(map[string]any{"type": domain.MsgElementsSynced, "count": after})
	s.emitCanvasSync(nil)
	return before, after, nil
}

// ── Snapshots ──────────────────────────────────────────────

func (s *CanvasService) SnapshotCreate(name string) (domain.Snapshot, error) {
	snap := s.store.SnapshotCreate(name)
	s.emitter.Emit(map[string]any{
		"type":   domain.MsgSnapshot,
		"action": "created",
		"name":   snap.Name,
		"count":  len(snap.Elements),
	})
	return snap, nil
}

func (s *CanvasService) SnapshotList() ([]domain.SnapshotInfo, error) {
	return s.store.SnapshotList(), nil
}

func (s *CanvasService) SnapshotGet(name string) (domain.Snapshot, error) {
	return s.store.SnapshotGet(name)
}

func (s *CanvasService) SnapshotRestore(name string) (int, error) {
	n, err := s.store.SnapshotRestore(name)
	if err != nil {
		return 0, err
	}
	s.emitter.Emit(map[string]any{
		"type":   domain.MsgSnapshot,
		"action": "restored",
		"name":   name,
		"count":  n,
	})
	s.emitCanvasSync(nil)
	return n, nil
}

// ── Peer-applied mutations (WebSocket inbound) ─────────────
//
// These apply an editor peer's mutation and re-broadcast excluding the
// sender, which breaks the echo loop. Inbound elements run through the
// normalizer so store invariants hold regardless of peer behavior.

func (s *CanvasService) ApplyPeerSync(origin any, raw []domain.Element, appState map[string]any) error {
	raw = dropTombstones(raw)
	els := make([]domain.Element, 0, len(raw))
	for i, r := range raw {
		el, err := scene.Normalize(r)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		els = append(els, el)
	}
	scene.ResolveBindings(els, nil)
	s.store.Replace(els)
	if appState != nil {
		s.store.SetAppState(appState)
	}
	s.emitCanvasSync(origin)
	return nil
}

func (s *CanvasService) ApplyPeerCreate(origin any, raw domain.Element) error {
	el, err := scene.Normalize(raw)
	if err != nil {
		return err
	}
	scene.ResolveBindings([]domain.Element{el}, s.store.Get0)
	s.store.Put(el)
	s.emitter.EmitExcept(origin, map[string]any{"type": domain.MsgElementCreated, "element": el})
	s.emitCanvasSync(origin)
	return nil
}

func (s *CanvasService) ApplyPeerUpdate(origin any, id string, updates map[string]any) error {
	el, err := s.store.Patch(id, updates)
	if err != nil {
		return err
	}
	s.emitter.EmitExcept(origin, map[string]any{"type": domain.MsgElementUpdated, "element": el})
	s.emitCanvasSync(origin)
	return nil
}

func (s *CanvasService) ApplyPeerDelete(origin any, id string) error {
	if !s.store.Delete(id) {
		return fmt.Errorf("element %s: %w", id, scene.ErrNotFound)
	}
	s.emitter.EmitExcept(origin, map[string]any{"type": domain.MsgElementDeleted, "id": id})
	s.emitCanvasSync(origin)
	return nil
}

// emitCanvasSync broadcasts the full canonical scene. Passing an origin
// excludes the peer that caused the mutation.
func (s *CanvasService) emitCanvasSync(origin any) {
	msg := map[string]any{
		"type":      domain.MsgCanvasSync,
		"data":      s.store.Scene(),
		"timestamp": time.Now().UnixMilli(),
	}
	if origin == nil {
		s.emitter.Emit(msg)
	} else {
		s.emitter.EmitExcept(origin, msg)
	}
}

// ── Correlated calls ───────────────────────────────────────

// ExportResult is the payload an editor peer posts back for an image export.
type ExportResult struct {
	Format string
	Data   string
}

// ViewportResult is the payload of a viewport acknowledgement.
type ViewportResult struct {
	Success bool
	Message string
}

// FromMermaid asks a connected editor peer to convert a mermaid diagram to
// elements, then inserts the result into the scene.
func (s *CanvasService) FromMermaid(ctx context.Context, diagram string, config map[string]any) ([]domain.Element, error) {
	clients := s.emitter.Clients()
	if clients == 0 {
		return nil, ErrNoPeers
	}
	id, waiter := s.corr.Issue(hub.KindMermaid, clients)
	msg := map[string]any{
		"type":           domain.MsgMermaidConvert,
		"requestId":      id,
		"mermaidDiagram": diagram,
	}
	if config != nil {
		msg["config"] = config
	}
	s.emitter.Emit(msg)

	res, err := s.await(ctx, waiter)
	if err != nil {
		return nil, err
	}
	raw, _ := res.([]domain.Element)
	return s.CreateBatch(raw)
}

// ExportImage asks a connected editor peer to render the scene.
func (s *CanvasService) ExportImage(ctx context.Context, format string, background bool) (ExportResult, error) {
	clients := s.emitter.Clients()
	if clients == 0 {
		return ExportResult{}, ErrNoPeers
	}
	id, waiter := s.corr.Issue(hub.KindExportImage, clients)
	s.emitter.Emit(map[string]any{
		"type":       domain.MsgExportImageRequest,
		"requestId":  id,
		"format":     format,
		"background": background,
	})

	res, err := s.await(ctx, waiter)
	if err != nil {
		return ExportResult{}, err
	}
	out, _ := res.(ExportResult)
	return out, nil
}

// SetViewport asks a connected editor peer to move its viewport.
func (s *CanvasService) SetViewport(ctx context.Context, req domain.ViewportRequest) (string, error) {
	clients := s.emitter.Clients()
	if clients == 0 {
		return "", ErrNoPeers
	}
	id, waiter := s.corr.Issue(hub.KindViewport, clients)
	msg := map[string]any{
		"type":      domain.MsgSetViewport,
		"requestId": id,
	}
	if req.ScrollToContent != nil {
		msg["scrollToContent"] = *req.ScrollToContent
	}
	if req.ScrollToElementID != "" {
		msg["scrollToElementId"] = req.ScrollToElementID
	}
	if req.Zoom != nil {
		msg["zoom"] = *req.Zoom
	}
	if req.OffsetX != nil {
		msg["offsetX"] = *req.OffsetX
	}
	if req.OffsetY != nil {
		msg["offsetY"] = *req.OffsetY
	}
	s.emitter.Emit(msg)

	res, err := s.await(ctx, waiter)
	if err != nil {
		return "", err
	}
	out, _ := res.(ViewportResult)
	return out.Message, nil
}

func (s *CanvasService) await(ctx context.Context, waiter <-chan hub.Result) (any, error) {
	select {
	case res := <-waiter:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ── Correlated result intake (REST result endpoints) ───────
//
// Unknown request ids are not errors: the pending call has already timed out
// or been superseded, and the sender must still see success.

func (s *CanvasService) ResolveMermaid(requestID string, elements []domain.Element, errMsg string) {
	if errMsg != "" {
		s.corr.Fail(requestID, &hub.PeerError{Message: errMsg})
		return
	}
	s.corr.Resolve(requestID, elements)
}

func (s *CanvasService) ResolveExport(requestID, format, data, errMsg string) {
	if errMsg != "" {
		s.corr.Fail(requestID, &hub.PeerError{Message: errMsg})
		return
	}
	s.corr.Resolve(requestID, ExportResult{Format: format, Data: data})
}

func (s *CanvasService) ResolveViewport(requestID string, success bool, message, errMsg string) {
	if errMsg != "" {
		s.corr.Fail(requestID, &hub.PeerError{Message: errMsg})
		return
	}
	s.corr.Resolve(requestID, ViewportResult{Success: success, Message: message})
}

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"drawdesk/internal/hub"
	"drawdesk/internal/scene"
	"drawdesk/internal/service"
)

func newTestServer(t *testing.T) (*httptest.Server, *service.CanvasService, *hub.Bus) {
	t.Helper()
	store := scene.NewStore()
	bus := hub.NewBus(nil)
	corr := hub.NewCorrelator()
	svc := service.NewCanvasService(store, bus, corr)
	ts := httptest.NewServer(New(svc, bus, nil, nil).Handler())
	t.Cleanup(ts.Close)
	return ts, svc, bus
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestHealth(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/health", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["status"] != "ok" || body["clients"] != float64(0) {
		t.Errorf("body = %v", body)
	}
}

func TestCreateAndGetElement(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/elements", map[string]any{
		"type": "rectangle", "x": 0, "y": 0, "width": 100, "height": 50,
	})
	if resp.StatusCode != 200 {
		t.Fatalf("create status = %d (%v)", resp.StatusCode, body)
	}
	el, _ := body["element"].(map[string]any)
	id, _ := el["id"].(string)
	if id == "" {
		t.Fatalf("no id in %v", body)
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/elements/"+id, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	got, _ := body["element"].(map[string]any)
	if got["id"] != id {
		t.Errorf("get returned %v", got)
	}
}

func TestGetElementNotFound(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/elements/ghost", nil)
	if resp.StatusCode != 404 {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if body["success"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestCreateElementRejectsUnknownType(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/elements", map[string]any{"type": "blob"})
	if resp.StatusCode != 400 {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

// Boundary scenario: batch create with intra-batch arrow references.
func TestBatchArrowBinding(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/elements/batch", map[string]any{
		"elements": []map[string]any{
			{"id": "A", "type": "rectangle", "x": 0, "y": 0, "width": 100, "height": 50},
			{"id": "B", "type": "rectangle", "x": 300, "y": 0, "width": 100, "height": 50},
			{"type": "arrow", "x": 0, "y": 0, "start": map[string]any{"id": "A"}, "end": map[string]any{"id": "B"}},
		},
	})
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d (%v)", resp.StatusCode, body)
	}
	els, _ := body["elements"].([]any)
	if len(els) != 3 {
		t.Fatalf("count = %d", len(els))
	}
	arrow, _ := els[2].(map[string]any)
	sb, _ := arrow["startBinding"].(map[string]any)
	eb, _ := arrow["endBinding"].(map[string]any)
	if sb == nil || sb["elementId"] != "A" {
		t.Errorf("startBinding = %v", sb)
	}
	if eb == nil || eb["elementId"] != "B" {
		t.Errorf("endBinding = %v", eb)
	}
	pts, _ := arrow["points"].([]any)
	if len(pts) != 2 {
		t.Errorf("points = %v", pts)
	}
	if _, hasStart := arrow["start"]; hasStart {
		t.Errorf("raw start survived")
	}
	if _, hasEnd := arrow["end"]; hasEnd {
		t.Errorf("raw end survived")
	}
}

// Boundary scenario: composite search filter.
func TestSearchCompositeFilter(t *testing.T) {
	ts, _, _ := newTestServer(t)
	seed := []map[string]any{
		{"type": "rectangle", "strokeColor": "#ff0000", "width": 200, "height": 80},
		{"type": "rectangle", "strokeColor": "#ff0000", "width": 50, "height": 40},
		{"type": "rectangle", "strokeColor": "#0000ff", "width": 300, "height": 90},
		{"type": "ellipse", "strokeColor": "#ff0000", "width": 120, "height": 120},
		{"type": "text", "text": "Hello", "width": 140, "height": 30},
	}
	if resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/elements/batch", map[string]any{"elements": seed}); resp.StatusCode != 200 {
		t.Fatalf("seed failed: %d", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodGet,
		ts.URL+"/api/elements/search?type=rectangle&strokeColor=%23ff0000&minWidth=100", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["count"] != float64(1) {
		t.Fatalf("count = %v (%v)", body["count"], body)
	}
	els, _ := body["elements"].([]any)
	el, _ := els[0].(map[string]any)
	if el["width"] != float64(200) {
		t.Errorf("matched element = %v", el)
	}
}

func TestSearchEmptyMatchIs200(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/elements/search?type=frame", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["count"] != float64(0) {
		t.Errorf("count = %v", body["count"])
	}
	if els, ok := body["elements"].([]any); !ok || len(els) != 0 {
		t.Errorf("elements = %v", body["elements"])
	}
}

// Boundary scenario: angle survives a partial update.
func TestAnglePreservedOnPut(t *testing.T) {
	ts, _, _ := newTestServer(t)
	_, body := doJSON(t, http.MethodPost, ts.URL+"/api/elements", map[string]any{
		"type": "rectangle", "x": 0, "y": 0, "width": 100, "height": 50,
	})
	el, _ := body["element"].(map[string]any)
	id, _ := el["id"].(string)

	resp, body := doJSON(t, http.MethodPut, ts.URL+"/api/elements/"+id, map[string]any{"x": 200})
	if resp.StatusCode != 200 {
		t.Fatalf("put status = %d", resp.StatusCode)
	}
	updated, _ := body["element"].(map[string]any)
	angle, present := updated["angle"]
	if !present || angle != float64(0) {
		t.Errorf("angle = %v (present=%v), want 0", angle, present)
	}
	if updated["x"] != float64(200) {
		t.Errorf("x = %v", updated["x"])
	}
}

// Boundary scenario: correlated call with zero peers.
func TestExportImageNoPeers(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/export/image", map[string]any{"format": "png"})
	if resp.StatusCode != 503 {
		t.Fatalf("status = %d, want 503 (%v)", resp.StatusCode, body)
	}
	msg, _ := body["error"].(string)
	if msg == "" || body["success"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestExportImageBadFormat(t *testing.T) {
	ts, _, _ := newTestServer(t)
	for _, format := range []any{nil, "gif"} {
		payload := map[string]any{}
		if format != nil {
			payload["format"] = format
		}
		resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/export/image", payload)
		if resp.StatusCode != 400 {
			t.Errorf("format=%v: status = %d, want 400", format, resp.StatusCode)
		}
	}
}

// Boundary scenario: late result for an unknown request id answers 200.
func TestLateResultAccepted(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/export/image/result", map[string]any{
		"requestId": "ghost", "format": "png", "data": "",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200 (%v)", resp.StatusCode, body)
	}
	if body["success"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestResultWithoutRequestIDIs400(t *testing.T) {
	ts, _, _ := newTestServer(t)
	for _, path := range []string{
		"/api/elements/from-mermaid/result",
		"/api/export/image/result",
		"/api/viewport/result",
	} {
		resp, _ := doJSON(t, http.MethodPost, ts.URL+path, map[string]any{"data": "x"})
		if resp.StatusCode != 400 {
			t.Errorf("%s: status = %d, want 400", path, resp.StatusCode)
		}
	}
}

func TestSnapshotEndpoints(t *testing.T) {
	ts, _, _ := newTestServer(t)
	if resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/snapshots", map[string]any{}); resp.StatusCode != 400 {
		t.Fatalf("nameless snapshot accepted: %d", resp.StatusCode)
	}
	if resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/snapshots", map[string]any{"name": "v1"}); resp.StatusCode != 200 {
		t.Fatalf("snapshot create failed: %d", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/snapshots", nil)
	if resp.StatusCode != 200 || body["count"] != float64(1) {
		t.Fatalf("list: %d %v", resp.StatusCode, body)
	}

	if resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/snapshots/v1", nil); resp.StatusCode != 200 {
		t.Errorf("get snapshot: %d", resp.StatusCode)
	}
	if resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/snapshots/ghost", nil); resp.StatusCode != 404 {
		t.Errorf("unknown snapshot: %d, want 404", resp.StatusCode)
	}
}

func TestSyncEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t)
	doJSON(t, http.MethodPost, ts.URL+"/api/elements", map[string]any{"type": "rectangle"})

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/elements/sync", map[string]any{
		"elements": []map[string]any{{"type": "ellipse"}, {"type": "diamond"}},
	})
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["beforeCount"] != float64(1) || body["afterCount"] != float64(2) {
		t.Errorf("body = %v", body)
	}
	if body["syncedAt"] == nil {
		t.Errorf("syncedAt missing")
	}
}

func TestClearEndpoints(t *testing.T) {
	ts, _, _ := newTestServer(t)
	for i := 0; i < 3; i++ {
		doJSON(t, http.MethodPost, ts.URL+"/api/elements", map[string]any{"type": "rectangle"})
	}
	resp, body := doJSON(t, http.MethodDelete, ts.URL+"/api/elements/clear", nil)
	if resp.StatusCode != 200 || body["cleared"] != float64(3) {
		t.Fatalf("clear: %d %v", resp.StatusCode, body)
	}
}

func TestLegacySurface(t *testing.T) {
	ts, _, _ := newTestServer(t)
	_, created := doJSON(t, http.MethodPost, ts.URL+"/elements", map[string]any{"type": "rectangle"})
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("legacy create returned %v", created)
	}

	resp, snapshot := doJSON(t, http.MethodGet, ts.URL+"/snapshot", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("legacy snapshot: %d", resp.StatusCode)
	}
	if snapshot["type"] != "excalidraw" || snapshot["version"] != float64(2) {
		t.Errorf("snapshot envelope = %v", snapshot)
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/elements/"+id, nil)
	if resp.StatusCode != 200 {
		t.Errorf("legacy delete: %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/clear", nil)
	if resp.StatusCode != 200 {
		t.Errorf("legacy clear: %d", resp.StatusCode)
	}
}

func TestSyncStatus(t *testing.T) {
	ts, _, _ := newTestServer(t)
	doJSON(t, http.MethodPost, ts.URL+"/api/elements", map[string]any{"type": "rectangle"})
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/sync/status", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["elementCount"] != float64(1) || body["connectedClients"] != float64(0) {
		t.Errorf("body = %v", body)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts, _, _ := newTestServer(t)
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/elements", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("CORS header missing")
	}
}

func TestMalformedBodyIs400(t *testing.T) {
	ts, _, _ := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/elements", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSearchNumericFieldParam(t *testing.T) {
	ts, _, _ := newTestServer(t)
	doJSON(t, http.MethodPost, ts.URL+"/api/elements", map[string]any{"type": "rectangle", "roughness": 2})
	doJSON(t, http.MethodPost, ts.URL+"/api/elements", map[string]any{"type": "rectangle"})

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/elements/search?roughness=2", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["count"] != float64(1) {
		t.Errorf("count = %v", fmt.Sprint(body["count"]))
	}
}

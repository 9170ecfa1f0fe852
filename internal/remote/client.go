package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"drawdesk/internal/domain"
	"drawdesk/internal/scene"
	"drawdesk/internal/service"
)

// Client implements the tool gateway's Backend over the canvas server's REST
// surface. The stdio child process uses it so agents attached over stdio
// mutate the same scene the HTTP transport serves.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client against the given base URL
// (e.g. http://localhost:3100). The request timeout sits above every
// correlator deadline so correlated calls fail server-side first.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 35 * time.Second},
	}
}

// apiError reconstructs the error categories from the wire contract so the
// tool layer reports the same failures in both in-process and child modes.
func apiError(status int, msg string) error {
	switch status {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", scene.ErrInvalid, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, scene.ErrNotFound)
	case http.StatusServiceUnavailable:
		return service.ErrNoPeers
	default:
		return fmt.Errorf("canvas server: %s", msg)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("canvas server request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Error string `json:"error"`
		}
		msg := resp.Status
		if json.Unmarshal(data, &envelope) == nil && envelope.Error != "" {
			msg = envelope.Error
		}
		return apiError(resp.StatusCode, msg)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Most endpoints answer {"success": true, ...}; these envelopes pick out the
// payload fields the Backend methods need.

type elementEnvelope struct {
	Element domain.Element `json:"element"`
}

type elementsEnvelope struct {
	Elements []domain.Element `json:"elements"`
	Count    int              `json:"count"`
}

func (c *Client) ListElements() ([]domain.Element, error) {
	var out elementsEnvelope
	if err := c.do(context.Background(), http.MethodGet, "/api/elements", nil, &out); err != nil {
		return nil, err
	}
	return out.Elements, nil
}

func (c *Client) GetElement(id string) (domain.Element, error) {
	var out elementEnvelope
	if err := c.do(context.Background(), http.MethodGet, "/api/elements/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out.Element, nil
}

func (c *Client) CreateElement(raw domain.Element) (domain.Element, error) {
	var out elementEnvelope
	if err := c.do(context.Background(), http.MethodPost, "/api/elements", raw, &out); err != nil {
		return nil, err
	}
	return out.Element, nil
}

func (c *Client) CreateBatch(raw []domain.Element) ([]domain.Element, error) {
	var out elementsEnvelope
	body := map[string]any{"elements": raw}
	if err := c.do(context.Background(), http.MethodPost, "/api/elements/batch", body, &out); err != nil {
		return nil, err
	}
	return out.Elements, nil
}

func (c *Client) UpdateElement(id string, patch map[string]any) (domain.Element, error) {
	var out elementEnvelope
	if err := c.do(context.Background(), http.MethodPut, "/api/elements/"+url.PathEscape(id), patch, &out); err != nil {
		return nil, err
	}
	return out.Element, nil
}

func (c *Client) DeleteElement(id string) error {
	return c.do(context.Background(), http.MethodDelete, "/api/elements/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ClearCanvas() (int, error) {
	var out struct {
		Cleared int `json:"cleared"`
	}
	if err := c.do(context.Background(), http.MethodDelete, "/api/elements/clear", nil, &out); err != nil {
		return 0, err
	}
	return out.Cleared, nil
}

func (c *Client) ReplaceElements(raw []domain.Element) (int, int, error) {
	var out struct {
		BeforeCount int `json:"beforeCount"`
		AfterCount  int `json:"afterCount"`
	}
	body := map[string]any{"elements": raw}
	if err := c.do(context.Background(), http.MethodPost, "/api/elements/sync", body, &out); err != nil {
		return 0, 0, err
	}
	return out.BeforeCount, out.AfterCount, nil
}

func (c *Client) Search(q scene.Query) ([]domain.Element, error) {
	values := url.Values{}
	if len(q.Types) > 0 {
		values.Set("types", strings.Join(q.Types, ","))
	}
	for key, bound := range map[string]*float64{
		"minWidth":  q.MinWidth,
		"maxWidth":  q.MaxWidth,
		"minHeight": q.MinHeight,
		"maxHeight": q.MaxHeight,
	} {
		if bound != nil {
			values.Set(key, strconv.FormatFloat(*bound, 'f', -1, 64))
		}
	}
	if q.TextContains != "" {
		values.Set("textContains", q.TextContains)
	}
	for key, want := range q.Fields {
		values.Set(key, want)
	}
	var out elementsEnvelope
	if err := c.do(context.Background(), http.MethodGet, "/api/elements/search?"+values.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Elements, nil
}

func (c *Client) Scene() (domain.Scene, error) {
	var out domain.Scene
	if err := c.do(context.Background(), http.MethodGet, "/canvas", nil, &out); err != nil {
		return domain.Scene{}, err
	}
	return out, nil
}

func (c *Client) SnapshotCreate(name string) (domain.Snapshot, error) {
	var out struct {
		Snapshot domain.SnapshotInfo `json:"snapshot"`
	}
	if err := c.do(context.Background(), http.MethodPost, "/api/snapshots", map[string]any{"name": name}, &out); err != nil {
		return domain.Snapshot{}, err
	}
	// The REST surface returns metadata only; fetch the stored copy.
	return c.SnapshotGet(out.Snapshot.Name)
}

func (c *Client) SnapshotList() ([]domain.SnapshotInfo, error) {
	var out struct {
		Snapshots []domain.SnapshotInfo `json:"snapshots"`
	}
	if err := c.do(context.Background(), http.MethodGet, "/api/snapshots", nil, &out); err != nil {
		return nil, err
	}
	return out.Snapshots, nil
}

func (c *Client) SnapshotGet(name string) (domain.Snapshot, error) {
	var out struct {
		Snapshot domain.Snapshot `json:"snapshot"`
	}
	if err := c.do(context.Background(), http.MethodGet, "/api/snapshots/"+url.PathEscape(name), nil, &out); err != nil {
		return domain.Snapshot{}, err
	}
	return out.Snapshot, nil
}

func (c *Client) SnapshotRestore(name string) (int, error) {
	snap, err := c.SnapshotGet(name)
	if err != nil {
		return 0, err
	}
	_, after, err := c.ReplaceElements(snap.Elements)
	if err != nil {
		return 0, err
	}
	return after, nil
}

func (c *Client) FromMermaid(ctx context.Context, diagram string, config map[string]any) ([]domain.Element, error) {
	body := map[string]any{"mermaidDiagram": diagram}
	if config != nil {
		body["config"] = config
	}
	var out elementsEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/elements/from-mermaid", body, &out); err != nil {
		return nil, err
	}
	return out.Elements, nil
}

func (c *Client) ExportImage(ctx context.Context, format string, background bool) (service.ExportResult, error) {
	var out struct {
		Format string `json:"format"`
		Data   string `json:"data"`
	}
	body := map[string]any{"format": format, "background": background}
	if err := c.do(ctx, http.MethodPost, "/api/export/image", body, &out); err != nil {
		return service.ExportResult{}, err
	}
	return service.ExportResult{Format: out.Format, Data: out.Data}, nil
}

func (c *Client) SetViewport(ctx context.Context, req domain.ViewportRequest) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/viewport", req, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) Clients() int {
	var out struct {
		Clients int `json:"clients"`
	}
	if err := c.do(context.Background(), http.MethodGet, "/health", nil, &out); err != nil {
		return 0
	}
	return out.Clients
}

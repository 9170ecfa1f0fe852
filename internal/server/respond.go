package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"drawdesk/internal/hub"
	"drawdesk/internal/scene"
	"drawdesk/internal/service"
)

// maxBodyBytes bounds accepted JSON bodies (large scenes with embedded
// images are legitimate).
const maxBodyBytes = 50 << 20

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ok writes a success envelope, merging extra fields over {"success": true}.
func ok(w http.ResponseWriter, extra map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

// fail maps an error onto the wire contract: a status code and a
// {"success": false, "error": message} body. Stack traces never leak.
func fail(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}

// failMsg writes a failure with an explicit status and message.
func failMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// statusFor maps error kinds onto wire status codes.
func statusFor(err error) int {
	var timeout *hub.TimeoutError
	var peerErr *hub.PeerError
	switch {
	case errors.Is(err, scene.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, scene.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNoPeers):
		return http.StatusServiceUnavailable
	case errors.As(err, &timeout), errors.As(err, &peerErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// invalidf builds an InvalidArgument error.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", scene.ErrInvalid, fmt.Sprintf(format, args...))
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", scene.ErrInvalid, err)
	}
	return nil
}

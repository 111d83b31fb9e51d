package util

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// =============================================================================
// HTTP Response Helpers
// =============================================================================

// SetHTMLHeaders sets standard headers for HTML responses.
// Widget fragments reflect per-instance state, so they are never cached.
func SetHTMLHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
}

// WriteHTML writes an HTML string to the response writer.
// Returns any write error (usually safe to ignore for HTTP handlers).
func WriteHTML(w http.ResponseWriter, html string) error {
	_, err := w.Write([]byte(html))
	return err
}

// WriteJSON encodes v as the JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// =============================================================================
// HTTP Error Helpers
// =============================================================================

// RespondBadRequest sends a 400 Bad Request error response.
func RespondBadRequest(w http.ResponseWriter, message string) {
	http.Error(w, message, http.StatusBadRequest)
}

// RespondForbidden sends a 403 Forbidden error response.
func RespondForbidden(w http.ResponseWriter, message string) {
	http.Error(w, message, http.StatusForbidden)
}

// RespondNotFound sends a 404 Not Found error response.
func RespondNotFound(w http.ResponseWriter, message string) {
	http.Error(w, message, http.StatusNotFound)
}

// RespondInternalError sends a 500 Internal Server Error response.
func RespondInternalError(w http.ResponseWriter, message string) {
	http.Error(w, message, http.StatusInternalServerError)
}

// =============================================================================
// Outbound Fetch Helpers
// =============================================================================

// MaxRedirects bounds the redirect chain of an outbound fetch.
const MaxRedirects = 3

// PublicRedirects is a CheckRedirect policy for fetching URLs that readers
// or embedding pages supply. Every hop must be http(s) on a public host, the
// same check the first request passes.
func PublicRedirects(req *http.Request, via []*http.Request) error {
	if len(via) >= MaxRedirects {
		return fmt.Errorf("too many redirects")
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("redirect to unsupported scheme: %s", req.URL.Scheme)
	}
	if IsPrivateHost(req.URL.Hostname()) {
		return fmt.Errorf("redirect to private host: %s", req.URL.Hostname())
	}
	return nil
}

// WithPublicRedirects returns a copy of client that applies PublicRedirects.
func WithPublicRedirects(client *http.Client) *http.Client {
	c := *client
	c.CheckRedirect = PublicRedirects
	return &c
}

package web

import "net/http"

// RegisterRoutes registers the public HTML pages on the provided mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /{$}", h.Lookup)
	mux.HandleFunc("GET /verify", h.Lookup)
	mux.HandleFunc("GET /verify/{credentialID}", h.Verify)
}

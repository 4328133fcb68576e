package web

import (
	"io/fs"
	"net/http"
)

// RegisterRoutes registers the subscription page, its action form targets,
// and the embedded static assets at /static/*.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	mux.HandleFunc("GET /{$}", h.Page)
	mux.HandleFunc("POST /subscription/start", h.StartSubscription)
	mux.HandleFunc("POST /subscription/increase", h.IncreaseSubscription)
	mux.HandleFunc("POST /subscription/cancel", h.CancelSubscription)
}

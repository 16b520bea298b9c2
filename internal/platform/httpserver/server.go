package httpserver

import (
	"net/http"
	"time"

	"warden/internal/platform/config"
)

// New builds an HTTP server with the timeouts this service runs with. The
// write timeout leaves headroom over the per-request timeout middleware so a
// timed-out handler can still write its error response.
func New(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

package httpserver

import (
	"net/http"
	"time"
)

// New builds the engine's HTTP server. The cast path recomputes scores
// synchronously, so the write timeout leaves headroom over the store's
// own bounded operations.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

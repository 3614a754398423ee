// Package httptransport builds the HTTP server for the deal feed API.
package httptransport

import (
	"net/http"
	"time"
)

const (
	defaultReadTimeout = 5 * time.Second
	defaultIdleTimeout = 60 * time.Second
)

// ServerConfig tunes the API server. There is deliberately no write timeout:
// the live activity stream holds responses open indefinitely, so only reads
// and idle connections are bounded.
type ServerConfig struct {
	Address     string
	ReadTimeout time.Duration
	IdleTimeout time.Duration
}

// NewServer creates *http.Server for the feed API, applying defaults suited
// to a mix of short JSON requests and long-lived event streams.
func NewServer(cfg ServerConfig, handler http.Handler) *http.Server {
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	idleTimeout := cfg.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleTimeout
	}
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		IdleTimeout:       idleTimeout,
	}
}

// Package httpserver builds the HTTP server with the project's defaults.
package httpserver

import (
	"net/http"

	"cubby/internal/platform/config"
)

// New builds an HTTP server from the server config section.
func New(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
	}
}

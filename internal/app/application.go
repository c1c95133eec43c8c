package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"chalkboard/internal/api"
	"chalkboard/internal/config"
	"chalkboard/internal/relay"
)

// Application wires the relay server components together: hub, WebSocket
// handler, HTTP surface, and the plain plus optional TLS listeners.
type Application struct {
	config      *config.Config
	hub         *relay.Hub
	apiServer   *api.Server
	httpServer  *http.Server
	httpsServer *http.Server // nil when no certificates were found
	certs       *config.CertPair
}

// NewApplication builds an application from configuration. Certificate
// discovery happens here; a missing pair degrades to plain-only without
// error.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.Load()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	hub := relay.NewHub()
	wsHandler := relay.NewHandler(hub)
	certs := config.DiscoverCerts(cfg.CertDir)
	apiServer := api.NewServer(hub, wsHandler, certs != nil)

	app := &Application{
		config:    cfg,
		hub:       hub,
		apiServer: apiServer,
		certs:     certs,
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           apiServer,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	if certs != nil {
		app.httpsServer = &http.Server{
			Addr:              cfg.TLSAddr(),
			Handler:           apiServer,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return app, nil
}

// Start launches the hub and listeners. The plain listener is required;
// the TLS listener is best-effort and only logs on failure.
func (app *Application) Start(ctx context.Context) error {
	if err := app.hub.Start(ctx); err != nil {
		return fmt.Errorf("failed to start hub: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		log.Printf("[Relay] HTTP listening on http://%s", app.httpServer.Addr)
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if app.httpsServer != nil {
		go func() {
			log.Printf("[Relay] HTTPS listening on https://%s", app.httpsServer.Addr)
			err := app.httpsServer.ListenAndServeTLS(app.certs.CertFile, app.certs.KeyFile)
			if err != nil && err != http.ErrServerClosed {
				log.Printf("[Relay] HTTPS server error, continuing plain only: %v", err)
			}
		}()
	}

	select {
	case err := <-serverErrCh:
		_ = app.hub.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("[Relay] Server started")
		return nil
	case <-ctx.Done():
		_ = app.hub.Stop()
		return ctx.Err()
	}
}

// Stop shuts components down in reverse order: listeners, then hub.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("[Relay] Shutting down")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("[Relay] HTTP shutdown error: %v", err)
	}
	if app.httpsServer != nil {
		if err := app.httpsServer.Shutdown(ctx); err != nil {
			log.Printf("[Relay] HTTPS shutdown error: %v", err)
		}
	}
	if err := app.hub.Stop(); err != nil {
		log.Printf("[Relay] Hub shutdown error: %v", err)
	}

	log.Printf("[Relay] Shutdown complete")
	return nil
}

// GetAddr returns the plain listener address.
func (app *Application) GetAddr() string {
	return app.httpServer.Addr
}

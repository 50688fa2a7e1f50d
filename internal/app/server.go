package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/vk/statusboard/internal/channel"
)

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status    string         `json:"status"`
	Connected bool           `json:"connected"`
	ClientID  string         `json:"client_id,omitempty"`
	Stats     *channel.Stats `json:"stats,omitempty"`
}

// Router builds the host surface: health plus read access to regions.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", a.healthHandler)
	r.Route("/regions", func(r chi.Router) {
		r.Get("/", a.regionsHandler)
		r.Get("/{id}", a.regionHandler)
	})
	return r
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)

	resp := healthResponse{Status: "ok"}
	if client := a.currentClient(); client != nil {
		stats := client.Stats()
		resp.Connected = client.Connected()
		resp.ClientID = client.ID()
		resp.Stats = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) regionsHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.store.Snapshot())
}

func (a *App) regionHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	content, ok := a.store.Get(id)
	if !ok {
		http.Error(w, fmt.Sprintf("region %q has no content", id), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// startServer binds the host surface when a port is configured. The
// listener is opened synchronously so a busy port fails Run immediately.
func (a *App) startServer(ctx context.Context) error {
	if a.config.HTTPPort <= 0 {
		a.logger.Debug("Host surface disabled.")
		return nil
	}

	addr := fmt.Sprintf(":%d", a.config.HTTPPort)
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	a.httpServer = &http.Server{
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("🩺 Host surface starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Host surface failed unexpectedly", "error", err)
		}
	}()
	return nil
}

func (a *App) stopServer(ctx context.Context) {
	if a.httpServer == nil {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	a.logger.Info("🩺 Shutting down host surface...")
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Host surface shutdown failed", "error", err)
	}
}

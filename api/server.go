// Package api serves the operational HTTP surface: liveness,
// readiness, and metrics. The conversation itself never crosses this
// server.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olegbarsky/techstock-bot/pkg/logger"
)

// Pinger is anything readiness can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server hosts the ops endpoints.
type Server struct {
	http *http.Server
	logg *logger.Logger
}

// Options configures the ops server. Nil dependencies are simply not
// probed, so a deployment without redis stays ready.
type Options struct {
	Addr     string
	DB       Pinger
	Redis    Pinger
	Registry *prometheus.Registry
	Logger   *logger.Logger
}

func NewServer(opts Options) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := http.StatusOK
		probe := func(name string, p Pinger) {
			if p == nil {
				return
			}
			if err := p.Ping(ctx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				return
			}
			checks[name] = "ok"
		}
		probe("db", opts.DB)
		probe("redis", opts.Redis)
		writeJSON(w, status, checks)
	})

	if opts.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}

	return &Server{
		http: &http.Server{
			Addr:              opts.Addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logg: opts.Logger,
	}
}

// Start blocks serving until the listener fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if s.logg != nil {
		s.logg.Info(ctx, "ops server listening on "+s.http.Addr)
	}
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router serves metrics, status and feeding endpoints:
//
//	GET  /metrics
//	GET  /status
//	GET  /profiles
//	POST /feed/{profile}
//	POST /stop
func (c *Controller) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, c.Status())
	})
	r.Get("/profiles", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, c.Profiles())
	})
	r.Post("/feed/{profile}", func(w http.ResponseWriter, r *http.Request) {
		err := c.Feed(chi.URLParam(r, "profile"))
		switch {
		case errors.Is(err, ErrUnknownProfile):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case err != nil:
			c.log.Error().Err(err).Msg("error starting feeding")
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		default:
			w.WriteHeader(http.StatusAccepted)
		}
	})
	r.Post("/stop", func(w http.ResponseWriter, r *http.Request) {
		err := c.Stop()
		if err != nil {
			c.log.Error().Err(err).Msg("error stopping feeding")
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	return r
}

func (c *Controller) serveHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           c.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	c.log.Info().Str("addr", addr).Msg("serving HTTP")
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Stopper is the write side of the stop aggregator.
type Stopper interface {
	RequestStop(reason string)
}

// Server is the local control surface of a running instance.
type Server struct {
	Board   *StatusBoard
	Stop    Stopper
	Tokens  *TokenCodec
	Metrics http.Handler
	Log     zerolog.Logger
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logging)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/status", s.handleStatus)
	r.Post("/stop", s.handleStop)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}
	return r
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("control request")
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if s.Board == nil {
		writeErr(w, errors.New("no status available"), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.Board.Snapshot())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if s.Tokens == nil || s.Stop == nil {
		writeErr(w, errors.New("stop is not enabled"), http.StatusServiceUnavailable)
		return
	}
	if err := s.Tokens.Verify(tokenFromRequest(r), ActionStop); err != nil {
		s.Log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("rejected stop request")
		writeErr(w, err, http.StatusUnauthorized)
		return
	}
	s.Stop.RequestStop("control endpoint")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeErr(w http.ResponseWriter, err error, status int) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// Start serves h on addr until ctx is done, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info().Str("addr", addr).Msg("control server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

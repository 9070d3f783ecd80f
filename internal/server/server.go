// Package server exposes the scoring relay over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/manenim/cringe-relay/internal/scorer"
	"github.com/manenim/cringe-relay/pkg/limiter"
)

const maxBodyBytes = 1 << 20

// Options wires the server's collaborators.
type Options struct {
	Limiter      *limiter.Limiter
	ClientHeader string
	Scorer       scorer.Scorer
	Logger       zerolog.Logger
	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler
}

type Server struct {
	router  chi.Router
	scorer  scorer.Scorer
	logger  zerolog.Logger
	request *requestValidator
}

func New(opts Options) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		scorer:  opts.Scorer,
		logger:  opts.Logger.With().Str("component", "server").Logger(),
		request: newRequestValidator(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool { return true },
		AllowedMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:  []string{"Content-Type", opts.ClientHeader},
		ExposedHeaders: []string{
			limiter.HeaderPolicy,
			limiter.HeaderLimitMinute, limiter.HeaderRemainingMinute, limiter.HeaderResetMinute,
			limiter.HeaderLimit, limiter.HeaderRemaining, limiter.HeaderReset,
			limiter.HeaderRetryAfter,
		},
		MaxAge: 300,
	}))
	s.router.Use(accessLog(s.logger))

	s.router.Get("/health", s.handleHealth)
	if opts.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	s.router.Group(func(r chi.Router) {
		r.Use(limiter.Middleware(opts.Limiter, limiter.MiddlewareConfig{
			ClientHeader: opts.ClientHeader,
			Logger:       s.logger,
		}))
		r.Post("/score", s.handleScore)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type scoreRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	req, err := s.request.decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.logger.Debug().Err(err).Msg("invalid score request")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request"})
		return
	}

	res, err := s.scorer.Score(r.Context(), req.Text)
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("scoring failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Upstream error"})
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// accessLog logs one line per request once the handler has returned.
func accessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}

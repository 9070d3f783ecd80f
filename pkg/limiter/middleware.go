package limiter

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// MiddlewareConfig configures Middleware.
type MiddlewareConfig struct {
	// ClientHeader names the explicit client token header. Empty selects
	// DefaultClientHeader.
	ClientHeader string
	Logger       zerolog.Logger
}

type errorBody struct {
	Error string `json:"error"`
}

// Middleware gates next behind l. Every limited response carries the
// advisory headers; denied requests get 429 with a JSON reason and never
// reach next.
func Middleware(l *Limiter, cfg MiddlewareConfig) func(http.Handler) http.Handler {
	header := cfg.ClientHeader
	if header == "" {
		header = DefaultClientHeader
	}
	logger := cfg.Logger

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ResolveClientID(r, header)

			dec, err := l.Allow(r.Context(), id)
			if err != nil {
				if r.Context().Err() != nil {
					// Caller went away; nobody is left to answer.
					return
				}
				logger.Error().Err(err).Str("client_id", string(id)).Msg("rate limiter error, failing open")
				next.ServeHTTP(w, r)
				return
			}

			dec.WriteHeaders(w.Header())
			if !dec.Allow {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(errorBody{Error: dec.Reason})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

package adaptor

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// NewRouter serves the WebSocket endpoint and the HTTP health probe.
func NewRouter(a *Adaptor) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/ws", a.ServeWS)
	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(5 * time.Second))
		r.Get("/health", a.health)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})
	return r
}

type healthResponse struct {
	Status        string `json:"status"`
	Rooms         int    `json:"rooms"`
	Connections   int    `json:"connections"`
	DroppedEvents int64  `json:"droppedEvents"`
}

// health answers 200 even when degraded: rooms keep working in memory.
func (a *Adaptor) health(w http.ResponseWriter, r *http.Request) {
	status := a.gateway.Status(r.Context())
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        status.Status,
		Rooms:         status.Rooms,
		Connections:   status.Connections,
		DroppedEvents: status.DroppedEvents,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Debug().
				Str("request_id", chimw.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

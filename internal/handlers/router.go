package handlers

import (
	"net/http"
	"time"

	"github.com/aaronzipp/retroboard/internal/metrics"
	"github.com/gorilla/mux"
)

// NewRouter registers every route
func NewRouter(ctx *Context) *mux.Router {
	r := mux.NewRouter()
	r.Use(ctx.accessLog, metrics.Middleware)

	r.HandleFunc("/healthz", ctx.HandleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/ws/retro/{sessionId}", ctx.HandleRetroSocket).Methods(http.MethodGet)
	r.HandleFunc("/retros/{sessionId}/state", ctx.HandleRoomState).Methods(http.MethodGet)
	r.HandleFunc("/retros/{sessionId}/qr", ctx.HandleShareCode).Methods(http.MethodGet)
	return r
}

// accessLog logs each request once it completes. WebSocket requests are
// logged when the session ends.
func (ctx *Context) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := metrics.NewStatusRecorder(w)
		next.ServeHTTP(rec, r)

		ev := ctx.Log.Debug()
		if rec.Status() >= http.StatusInternalServerError {
			ev = ctx.Log.Warn()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.Status()).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}

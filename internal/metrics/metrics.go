package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the retroboard collectors
	Registry = prometheus.NewRegistry()

	activeRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "retroboard",
			Subsystem: "rooms",
			Name:      "active",
			Help:      "Rooms currently held in memory.",
		},
	)

	evictedRooms = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "retroboard",
			Subsystem: "rooms",
			Name:      "evicted_total",
			Help:      "Rooms evicted after staying idle.",
		},
	)

	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "retroboard",
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Open WebSocket connections.",
		},
	)

	closedConnections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retroboard",
			Subsystem: "ws",
			Name:      "closed_total",
			Help:      "WebSocket connections closed, by reason.",
		},
		[]string{"reason"},
	)

	inboundMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retroboard",
			Subsystem: "ws",
			Name:      "messages_total",
			Help:      "Inbound client messages by type and result.",
		},
		[]string{"type", "result"},
	)

	droppedBroadcasts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "retroboard",
			Subsystem: "ws",
			Name:      "dropped_frames_total",
			Help:      "Outbound frames dropped because a connection queue was full.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retroboard",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retroboard",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests. WebSocket requests span the whole session.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)
)

func init() {
	Registry.MustRegister(
		activeRooms,
		evictedRooms,
		activeConnections,
		closedConnections,
		inboundMessages,
		droppedBroadcasts,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered metrics
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RoomOpened and RoomClosed track the number of live rooms
func RoomOpened() { activeRooms.Inc() }
func RoomClosed() { activeRooms.Dec() }

// RoomEvicted counts an idle eviction
func RoomEvicted() { evictedRooms.Inc() }

// ConnectionOpened tracks a new WebSocket session
func ConnectionOpened() { activeConnections.Inc() }

// ConnectionClosed tracks the end of a WebSocket session
func ConnectionClosed(reason string) {
	activeConnections.Dec()
	if reason == "" {
		reason = "unknown"
	}
	closedConnections.WithLabelValues(reason).Inc()
}

// RecordMessage counts an inbound message. result is one of applied,
// rejected, ignored, malformed, stale or limited.
func RecordMessage(kind, result string) {
	if kind == "" {
		kind = "unknown"
	}
	inboundMessages.WithLabelValues(kind, result).Inc()
}

// FramesDropped counts frames that could not be queued
func FramesDropped(n int) {
	if n > 0 {
		droppedBroadcasts.Add(float64(n))
	}
}

// Middleware records request counts and durations keyed by route template
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := NewStatusRecorder(w)

		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.Status())).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

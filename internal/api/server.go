// Package api exposes the geofence engine over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoalarm/internal/alarm"
	"github.com/sells-group/geoalarm/internal/capability"
	"github.com/sells-group/geoalarm/internal/engine"
	"github.com/sells-group/geoalarm/internal/model"
)

// Deps are the components served by the API.
type Deps struct {
	Engine       *engine.Engine
	Router       *alarm.Router
	Capabilities *capability.Source

	// BackgroundRequired is stamped onto capabilities set through the API.
	BackgroundRequired bool

	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
}

// Server holds the HTTP handlers.
type Server struct {
	deps Deps
}

// NewServer creates a Server.
func NewServer(deps Deps) *Server {
	return &Server{deps: deps}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if len(s.deps.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.deps.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/geofences", s.handleListGeofences)
		r.Post("/geofences", s.handleSaveGeofence)
		r.Delete("/geofences", s.handleClearGeofences)
		r.Delete("/geofences/{id}", s.handleDeleteGeofence)
		r.Post("/geofences/import", s.handleImportGeofences)
		r.Get("/geofences.geojson", s.handleGeoJSON)

		r.Post("/check", s.handleCheck)
		r.Post("/locate", s.handleLocate)

		r.Get("/capabilities", s.handleGetCapabilities)
		r.Put("/capabilities", s.handlePutCapabilities)

		r.Post("/events/geofence", s.handleGeofenceEvent)
		r.Post("/alarm/stop", s.handleAlarmStop)
		r.Post("/alarm/snooze", s.handleAlarmSnooze)
		r.Get("/alarm", s.handleAlarmState)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case eris.Is(err, model.ErrInvalidGeofence), eris.Is(err, model.ErrGeofenceEvent):
		status = http.StatusBadRequest
	case eris.Is(err, model.ErrPermissionDenied):
		status = http.StatusForbidden
	case eris.Is(err, model.ErrLocationUnavailable), eris.Is(err, model.ErrRegistration):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		zap.L().Error("api: request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

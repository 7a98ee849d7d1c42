package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/geoalarm/internal/geo"
	"github.com/sells-group/geoalarm/internal/model"
)

const (
	maxImportBytes        = 1 << 20
	defaultCircleSegments = 64
)

type saveGeofenceRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Radius    *float64 `json:"radius"`
}

func (s *Server) handleListGeofences(w http.ResponseWriter, r *http.Request) {
	set, err := s.deps.Engine.ListGeofences(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleSaveGeofence(w http.ResponseWriter, r *http.Request) {
	var req saveGeofenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.Latitude == nil || req.Longitude == nil || req.Radius == nil {
		badRequest(w, "latitude, longitude and radius are required")
		return
	}

	res, err := s.deps.Engine.SaveGeofence(r.Context(), *req.Latitude, *req.Longitude, *req.Radius)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleDeleteGeofence(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "invalid geofence id")
		return
	}
	if err := s.deps.Engine.DeleteGeofence(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearGeofences(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Engine.ClearGeofences(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleImportGeofences(w http.ResponseWriter, r *http.Request) {
	ids, err := s.deps.Engine.ImportGeofences(r.Context(), http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string][]int64{"ids": ids})
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	segments := defaultCircleSegments
	if v := r.URL.Query().Get("segments"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, "invalid segments")
			return
		}
		segments = n
	}

	set, err := s.deps.Engine.ListGeofences(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if err := json.NewEncoder(w).Encode(geo.FeatureCollection(set, segments)); err != nil {
		writeError(w, err)
	}
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Engine.CheckNow(r.Context()))
}

func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Engine.PinCurrentLocation(r.Context()))
}

func (s *Server) handleGetCapabilities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Capabilities.Current())
}

func (s *Server) handlePutCapabilities(w http.ResponseWriter, r *http.Request) {
	var c model.Capabilities
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	c.BackgroundRequired = s.deps.BackgroundRequired
	s.deps.Capabilities.Set(c)
	writeJSON(w, http.StatusOK, s.deps.Capabilities.Current())
}

func (s *Server) handleGeofenceEvent(w http.ResponseWriter, r *http.Request) {
	var sig model.Signal
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := s.deps.Router.Handle(r.Context(), sig); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleAlarmStop(w http.ResponseWriter, r *http.Request) {
	s.handleAction(w, r, model.Signal{Action: model.ActionStop})
}

func (s *Server) handleAlarmSnooze(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query().Get("delay_ms")
	if v == "" {
		s.handleAction(w, r, model.Signal{Action: model.ActionSnooze})
		return
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		badRequest(w, "invalid delay_ms")
		return
	}
	s.deps.Router.Controller().Snooze(r.Context(), time.Duration(ms)*time.Millisecond)
	s.writeAlarmState(w)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request, sig model.Signal) {
	if err := s.deps.Router.Handle(r.Context(), sig); err != nil {
		writeError(w, err)
		return
	}
	s.writeAlarmState(w)
}

func (s *Server) handleAlarmState(w http.ResponseWriter, _ *http.Request) {
	s.writeAlarmState(w)
}

func (s *Server) writeAlarmState(w http.ResponseWriter) {
	c := s.deps.Router.Controller()
	writeJSON(w, http.StatusOK, map[string]bool{
		"active":         c.Active(),
		"snooze_pending": c.SnoozePending(),
	})
}

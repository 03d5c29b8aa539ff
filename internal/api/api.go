package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/greenhouse-controller/internal/greenhouse"
	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
)

type Server struct {
	svc     *greenhouse.Service
	router  *mux.Router
	metrics *Metrics
	http    *http.Server
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func NewServer(svc *greenhouse.Service) *Server {
	s := &Server{
		svc:     svc,
		router:  mux.NewRouter(),
		metrics: NewMetrics(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(requestID)
	r.Use(s.metrics.Middleware)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/overview", s.getOverview).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", s.getDashboard).Methods(http.MethodGet)

	api.HandleFunc("/zones", s.getZones).Methods(http.MethodGet)
	api.HandleFunc("/zones/{id}", s.getZone).Methods(http.MethodGet)
	api.HandleFunc("/zones/{id}/toggle", s.toggleZone).Methods(http.MethodPost)
	api.HandleFunc("/zones/{id}/water", s.waterZone).Methods(http.MethodPost)
	api.HandleFunc("/zones/{id}/events", s.getZoneEvents).Methods(http.MethodGet)
	api.HandleFunc("/events", s.getEvents).Methods(http.MethodGet)

	api.HandleFunc("/schedules", s.getSchedules).Methods(http.MethodGet)
	api.HandleFunc("/schedules", s.createSchedule).Methods(http.MethodPost)
	api.HandleFunc("/schedules/{id}", s.updateSchedule).Methods(http.MethodPut)
	api.HandleFunc("/schedules/{id}", s.deleteSchedule).Methods(http.MethodDelete)
	api.HandleFunc("/schedules/{id}/toggle", s.toggleSchedule).Methods(http.MethodPost)

	api.HandleFunc("/smart-rules", s.getSmartRules).Methods(http.MethodGet)
	api.HandleFunc("/smart-rules", s.updateSmartRules).Methods(http.MethodPut)

	api.HandleFunc("/crops", s.getCrops).Methods(http.MethodGet)
	api.HandleFunc("/crops", s.createCrop).Methods(http.MethodPost)
	api.HandleFunc("/crops/{id}", s.getCrop).Methods(http.MethodGet)
	api.HandleFunc("/crops/{id}", s.updateCrop).Methods(http.MethodPut)
	api.HandleFunc("/crops/{id}", s.deleteCrop).Methods(http.MethodDelete)

	api.HandleFunc("/history", s.getHistory).Methods(http.MethodGet)
	api.HandleFunc("/forecast", s.getForecast).Methods(http.MethodGet)
}

// Handler returns the router wrapped in CORS and panic recovery.
func (s *Server) Handler() http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(cors(s.router))
}

// Start serves until Shutdown is called. It returns nil on a clean shutdown.
func (s *Server) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("address", addr).Msg("Starting REST API server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Time: time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) getOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := s.svc.Overview(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "load overview")
		return
	}
	s.writeJSON(w, http.StatusOK, ov)
}

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.svc.Dashboard(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "load dashboard")
		return
	}
	s.writeJSON(w, http.StatusOK, dash)
}

func (s *Server) getZones(w http.ResponseWriter, r *http.Request) {
	zones, err := s.svc.ListZones(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "fetch zones")
		return
	}
	s.writeJSON(w, http.StatusOK, zones)
}

func (s *Server) getZone(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	zone, err := s.svc.GetZone(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, "fetch zone")
		return
	}
	s.writeJSON(w, http.StatusOK, zone)
}

func (s *Server) toggleZone(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	zone, err := s.svc.ToggleZone(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, "toggle zone")
		return
	}
	log.Ctx(r.Context()).Info().Int("zone_id", id).Bool("active", zone.Active).Msg("Zone toggled via API")
	s.writeJSON(w, http.StatusOK, zone)
}

func (s *Server) waterZone(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	event, err := s.svc.WaterZoneNow(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, "water zone")
		return
	}
	log.Ctx(r.Context()).Info().Int("zone_id", id).Int("event_id", event.ID).Msg("Manual watering started via API")
	s.writeJSON(w, http.StatusCreated, event)
}

func (s *Server) getZoneEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	events, err := s.svc.ZoneEvents(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, "fetch events")
		return
	}
	s.writeJSON(w, http.StatusOK, events)
}

func (s *Server) getEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.ListEvents(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "fetch events")
		return
	}
	s.writeJSON(w, http.StatusOK, events)
}

func (s *Server) getSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.svc.ListSchedules(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "fetch schedules")
		return
	}
	s.writeJSON(w, http.StatusOK, schedules)
}

func (s *Server) createSchedule(w http.ResponseWriter, r *http.Request) {
	var draft model.ScheduleDraft
	if !s.decode(w, r, &draft) {
		return
	}
	created, err := s.svc.CreateSchedule(r.Context(), draft)
	if err != nil {
		s.writeServiceError(w, r, err, "create schedule")
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var draft model.ScheduleDraft
	if !s.decode(w, r, &draft) {
		return
	}
	updated, err := s.svc.UpdateSchedule(r.Context(), id, draft)
	if err != nil {
		s.writeServiceError(w, r, err, "update schedule")
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteSchedule(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err, "delete schedule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	sched, err := s.svc.ToggleSchedule(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, "toggle schedule")
		return
	}
	s.writeJSON(w, http.StatusOK, sched)
}

func (s *Server) getSmartRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.svc.GetSmartRules(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "fetch smart rules")
		return
	}
	s.writeJSON(w, http.StatusOK, rules)
}

func (s *Server) updateSmartRules(w http.ResponseWriter, r *http.Request) {
	var rules model.SmartRules
	if !s.decode(w, r, &rules) {
		return
	}
	updated, err := s.svc.UpdateSmartRules(r.Context(), rules)
	if err != nil {
		s.writeServiceError(w, r, err, "update smart rules")
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) getCrops(w http.ResponseWriter, r *http.Request) {
	crops, err := s.svc.ListCrops(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "fetch crops")
		return
	}
	s.writeJSON(w, http.StatusOK, crops)
}

func (s *Server) getCrop(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	crop, err := s.svc.GetCrop(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, "fetch crop")
		return
	}
	s.writeJSON(w, http.StatusOK, crop)
}

func (s *Server) createCrop(w http.ResponseWriter, r *http.Request) {
	var crop model.Crop
	if !s.decode(w, r, &crop) {
		return
	}
	created, err := s.svc.CreateCrop(r.Context(), crop)
	if err != nil {
		s.writeServiceError(w, r, err, "create crop")
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateCrop(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var crop model.Crop
	if !s.decode(w, r, &crop) {
		return
	}
	updated, err := s.svc.UpdateCrop(r.Context(), id, crop)
	if err != nil {
		s.writeServiceError(w, r, err, "update crop")
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteCrop(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteCrop(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err, "delete crop")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.EnvironmentHistory())
}

func (s *Server) getForecast(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Forecast())
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid id %q", raw))
		return 0, false
	}
	return id, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}
	return true
}

// writeServiceError maps domain errors onto status codes. Anything unexpected
// is logged and reported as a generic failure of op.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrZoneActive):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		log.Ctx(r.Context()).Error().Err(err).Str("op", op).Msg("Request failed")
		s.writeError(w, http.StatusInternalServerError, "Failed to "+op)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/greenhouse-controller/internal/clock"
	"github.com/thatsimonsguy/greenhouse-controller/internal/config"
	"github.com/thatsimonsguy/greenhouse-controller/internal/controllers/schedulecontroller"
	"github.com/thatsimonsguy/greenhouse-controller/internal/controllers/zonecontroller"
	"github.com/thatsimonsguy/greenhouse-controller/internal/greenhouse"
	"github.com/thatsimonsguy/greenhouse-controller/internal/history"
	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
	"github.com/thatsimonsguy/greenhouse-controller/internal/store"
)

func setupTestServer(t *testing.T) (*Server, *store.Memory) {
	t.Helper()
	seed := config.DefaultSeed()
	snap, err := seed.Snapshot()
	require.NoError(t, err)

	clk := clock.NewFake(time.Date(2024, 1, 7, 20, 0, 0, 0, time.UTC))
	mem := store.NewMemory(snap)
	zones := zonecontroller.New(mem.Zones, mem.Events, clk, time.UTC, 10*time.Minute)
	t.Cleanup(zones.Stop)

	svc := greenhouse.NewService(mem.Backend(), zones, clk, greenhouse.Options{
		Location:        time.UTC,
		LitersPerMinute: 8,
		Forecast:        seed.Forecast,
		History:         history.NewService(time.UTC, history.DefaultDays, seed.History),
		Labels:          schedulecontroller.New(mem.Schedules, mem.Zones, zones, clk, time.UTC),
	})
	return NewServer(svc), mem
}

func do(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		reqJSON, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(reqJSON)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	server, _ := setupTestServer(t)

	w := do(t, server, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var response HealthResponse
	decodeBody(t, w, &response)
	assert.Equal(t, "ok", response.Status)
}

func TestGetZones(t *testing.T) {
	server, _ := setupTestServer(t)

	w := do(t, server, http.MethodGet, "/api/zones", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var zones []model.Zone
	decodeBody(t, w, &zones)
	require.Len(t, zones, 6)
	assert.Equal(t, "Vanilla Orchids", zones[0].Name)
	assert.Equal(t, 26.5, zones[0].Temperature)
}

func TestGetZone(t *testing.T) {
	server, _ := setupTestServer(t)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{"existing zone", "/api/zones/3", http.StatusOK},
		{"unknown zone", "/api/zones/99", http.StatusNotFound},
		{"non-numeric id", "/api/zones/abc", http.StatusBadRequest},
		{"zero id", "/api/zones/0", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, server, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus != http.StatusOK {
				var response ErrorResponse
				decodeBody(t, w, &response)
				assert.NotEmpty(t, response.Error)
			}
		})
	}
}

func TestToggleAndWaterZone(t *testing.T) {
	server, mem := setupTestServer(t)

	w := do(t, server, http.MethodPost, "/api/zones/2/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var zone model.Zone
	decodeBody(t, w, &zone)
	assert.True(t, zone.Active)

	w = do(t, server, http.MethodPost, "/api/zones/2/water", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, server, http.MethodPost, "/api/zones/4/water", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var event model.ActionEvent
	decodeBody(t, w, &event)
	assert.Equal(t, 4, event.ZoneID)
	assert.True(t, event.IsManual)
	assert.Equal(t, []string{"Watering"}, event.Actions)

	stored, err := mem.Zones.FindByID(context.Background(), 4)
	require.NoError(t, err)
	assert.True(t, stored.Active)

	w = do(t, server, http.MethodGet, "/api/zones/4/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events []model.ActionEvent
	decodeBody(t, w, &events)
	assert.Len(t, events, 1)

	w = do(t, server, http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &events)
	assert.Len(t, events, 2)
}

func TestCreateSchedule(t *testing.T) {
	server, mem := setupTestServer(t)

	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
	}{
		{"valid", model.ScheduleDraft{Name: "Dusk", Time: "7:45 PM", Days: []string{"Mon"}, Zones: []int{2}, Duration: 5, Actions: []string{"Lighting"}}, http.StatusCreated},
		{"no days", model.ScheduleDraft{Name: "Dusk", Time: "7:45 PM", Zones: []int{2}, Duration: 5, Actions: []string{"Lighting"}}, http.StatusBadRequest},
		{"unknown action", model.ScheduleDraft{Name: "Dusk", Time: "7:45 PM", Days: []string{"Mon"}, Zones: []int{2}, Duration: 5, Actions: []string{"Dancing"}}, http.StatusBadRequest},
		{"unknown zone", model.ScheduleDraft{Name: "Dusk", Time: "7:45 PM", Days: []string{"Mon"}, Zones: []int{12}, Duration: 5, Actions: []string{"Lighting"}}, http.StatusBadRequest},
		{"invalid json", "{not json", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, server, http.MethodPost, "/api/schedules", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}

	schedules, err := mem.Schedules.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, schedules, 4, "only the valid draft was stored")
	assert.Equal(t, 4, schedules[3].ID)
	assert.Equal(t, model.TimeOfDay{Hour: 19, Minute: 45}, schedules[3].Time)
}

func TestScheduleLifecycle(t *testing.T) {
	server, _ := setupTestServer(t)

	update := model.ScheduleDraft{Name: "Early Routine", Time: "04:45", Days: []string{"Tue"}, Zones: []int{1}, Duration: 20, Actions: []string{"Watering"}}
	w := do(t, server, http.MethodPut, "/api/schedules/1", update)
	require.Equal(t, http.StatusOK, w.Code)
	var sched model.Schedule
	decodeBody(t, w, &sched)
	assert.Equal(t, 1, sched.ID)
	assert.Equal(t, "Early Routine", sched.Name)
	assert.True(t, sched.Active)

	w = do(t, server, http.MethodPost, "/api/schedules/1/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &sched)
	assert.False(t, sched.Active)

	w = do(t, server, http.MethodDelete, "/api/schedules/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, server, http.MethodDelete, "/api/schedules/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, server, http.MethodPut, "/api/schedules/77", update)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSmartRules(t *testing.T) {
	server, _ := setupTestServer(t)

	rules := model.SmartRules{WeatherAdjust: false, MoistureAdjust: true, TemperatureAdjust: false, LightAdjust: true}
	w := do(t, server, http.MethodPut, "/api/smart-rules", rules)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, server, http.MethodGet, "/api/smart-rules", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got model.SmartRules
	decodeBody(t, w, &got)
	assert.Equal(t, rules, got)
}

func TestCrops(t *testing.T) {
	server, _ := setupTestServer(t)

	w := do(t, server, http.MethodPost, "/api/crops", model.Crop{Name: "Tomato"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, server, http.MethodPost, "/api/crops", model.Crop{Name: "Tomato", Type: "Vegetable"})
	require.Equal(t, http.StatusCreated, w.Code)
	var crop model.Crop
	decodeBody(t, w, &crop)

	path := fmt.Sprintf("/api/crops/%d", crop.ID)
	crop.Notes = "Needs staking"
	w = do(t, server, http.MethodPut, path, crop)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, server, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &crop)
	assert.Equal(t, "Needs staking", crop.Notes)

	w = do(t, server, http.MethodPut, path, map[string]string{"growthStage": "Flowering"})
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &crop)
	assert.Equal(t, "Tomato", crop.Name)
	assert.Equal(t, "Flowering", crop.GrowthStage)
	assert.Equal(t, "Needs staking", crop.Notes)

	w = do(t, server, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, server, http.MethodGet, "/api/crops", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var crops []model.Crop
	decodeBody(t, w, &crops)
	assert.Len(t, crops, 2)
}

func TestOverviewDashboardAndStaticData(t *testing.T) {
	server, _ := setupTestServer(t)

	w := do(t, server, http.MethodGet, "/api/overview", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ov model.Overview
	decodeBody(t, w, &ov)
	assert.Equal(t, 6, ov.TotalZones)
	assert.Equal(t, "Tomorrow", ov.NextScheduledDay)
	assert.Equal(t, "5:30 AM", ov.NextScheduledTime)

	w = do(t, server, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dash model.Dashboard
	decodeBody(t, w, &dash)
	assert.Len(t, dash.Zones, 6)

	w = do(t, server, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var samples []model.EnvironmentSample
	decodeBody(t, w, &samples)
	assert.Len(t, samples, 7)

	w = do(t, server, http.MethodGet, "/api/forecast", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var forecast []model.WeatherForecast
	decodeBody(t, w, &forecast)
	assert.Len(t, forecast, 5)
}

func TestMethodNotAllowed(t *testing.T) {
	server, _ := setupTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"DELETE zones", http.MethodDelete, "/api/zones"},
		{"GET zone toggle", http.MethodGet, "/api/zones/1/toggle"},
		{"POST smart rules", http.MethodPost, "/api/smart-rules"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, server, tt.method, tt.path, nil)
			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		})
	}
}

func TestRequestIDAndCORS(t *testing.T) {
	server, _ := setupTestServer(t)

	w := do(t, server, http.MethodGet, "/api/zones", nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/zones", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	req.Header.Set("Origin", "http://dashboard.local")
	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	do(t, server, http.MethodGet, "/api/zones", nil)
	do(t, server, http.MethodGet, "/api/zones/99", nil)

	w := do(t, server, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "greenhouse_http_requests_total")
	assert.Contains(t, body, `route="/api/zones/{id}"`)
	assert.Contains(t, body, `status="404"`)
}

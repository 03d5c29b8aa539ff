package greenhouse

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/greenhouse-controller/internal/clock"
	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
	"github.com/thatsimonsguy/greenhouse-controller/internal/store"
)

const (
	TempOptimalRange     = "20-28°C"
	HumidityOptimalRange = "60-80%"
	MoistureOptimalRange = "60-75%"
	LightOptimalRange    = "4000-8000 lux"
	CO2OptimalRange      = "400-600 ppm"

	defaultCO2 = 400
)

// ZoneController performs the zone transitions requested by users.
type ZoneController interface {
	Toggle(ctx context.Context, zoneID int) (model.Zone, error)
	WaterNow(ctx context.Context, zoneID int) (model.ActionEvent, error)
}

// LabelRefresher recomputes zone next-run labels after schedule edits.
type LabelRefresher interface {
	RefreshNextScheduled(ctx context.Context) error
}

type HistorySource interface {
	Samples() []model.EnvironmentSample
}

type Options struct {
	Location        *time.Location
	LitersPerMinute float64
	Forecast        []model.WeatherForecast
	History         HistorySource
	Labels          LabelRefresher
}

// Service is the operation set behind the HTTP API and the CLI.
type Service struct {
	store store.Backend
	zones ZoneController
	clock clock.Clock
	opts  Options
}

func NewService(backend store.Backend, zones ZoneController, clk clock.Clock, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Service{
		store: backend,
		zones: zones,
		clock: clk,
		opts:  opts,
	}
}

func (s *Service) ListZones(ctx context.Context) ([]model.Zone, error) {
	return s.store.Zones.FindAll(ctx)
}

func (s *Service) GetZone(ctx context.Context, id int) (model.Zone, error) {
	return s.store.Zones.FindByID(ctx, id)
}

func (s *Service) ToggleZone(ctx context.Context, id int) (model.Zone, error) {
	return s.zones.Toggle(ctx, id)
}

func (s *Service) WaterZoneNow(ctx context.Context, id int) (model.ActionEvent, error) {
	return s.zones.WaterNow(ctx, id)
}

func (s *Service) ListEvents(ctx context.Context) ([]model.ActionEvent, error) {
	return s.store.Events.FindAll(ctx)
}

func (s *Service) ZoneEvents(ctx context.Context, zoneID int) ([]model.ActionEvent, error) {
	if _, err := s.store.Zones.FindByID(ctx, zoneID); err != nil {
		return nil, err
	}
	return s.store.Events.FindByZone(ctx, zoneID)
}

func (s *Service) ListSchedules(ctx context.Context) ([]model.Schedule, error) {
	return s.store.Schedules.FindAll(ctx)
}

func (s *Service) CreateSchedule(ctx context.Context, draft model.ScheduleDraft) (model.Schedule, error) {
	sched, err := s.parseDraft(ctx, draft)
	if err != nil {
		return model.Schedule{}, err
	}
	created, err := s.store.Schedules.Create(ctx, sched)
	if err != nil {
		return model.Schedule{}, fmt.Errorf("creating schedule: %w", err)
	}

	log.Info().
		Int("schedule_id", created.ID).
		Str("name", created.Name).
		Str("time", created.Time.String()).
		Strs("days", created.Days.Labels()).
		Ints("zones", created.Zones).
		Msg("Schedule created")

	s.refreshLabels(ctx)
	return created, nil
}

// UpdateSchedule replaces everything but the id and the active flag.
func (s *Service) UpdateSchedule(ctx context.Context, id int, draft model.ScheduleDraft) (model.Schedule, error) {
	if _, err := s.store.Schedules.FindByID(ctx, id); err != nil {
		return model.Schedule{}, err
	}
	sched, err := s.parseDraft(ctx, draft)
	if err != nil {
		return model.Schedule{}, err
	}
	updated, err := s.store.Schedules.Update(ctx, id, sched.Edit())
	if err != nil {
		return model.Schedule{}, fmt.Errorf("updating schedule %d: %w", id, err)
	}

	log.Info().Int("schedule_id", id).Str("name", updated.Name).Msg("Schedule updated")
	s.refreshLabels(ctx)
	return updated, nil
}

func (s *Service) ToggleSchedule(ctx context.Context, id int) (model.Schedule, error) {
	sched, err := s.store.Schedules.FindByID(ctx, id)
	if err != nil {
		return model.Schedule{}, err
	}
	active := !sched.Active
	updated, err := s.store.Schedules.Update(ctx, id, model.SchedulePatch{Active: &active})
	if err != nil {
		return model.Schedule{}, fmt.Errorf("toggling schedule %d: %w", id, err)
	}

	log.Info().Int("schedule_id", id).Bool("active", updated.Active).Msg("Schedule toggled")
	s.refreshLabels(ctx)
	return updated, nil
}

// DeleteSchedule removes the schedule. Events it already produced stay in
// the log.
func (s *Service) DeleteSchedule(ctx context.Context, id int) error {
	if err := s.store.Schedules.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Int("schedule_id", id).Msg("Schedule deleted")
	s.refreshLabels(ctx)
	return nil
}

func (s *Service) GetSmartRules(ctx context.Context) (model.SmartRules, error) {
	return s.store.Settings.SmartRules(ctx)
}

func (s *Service) UpdateSmartRules(ctx context.Context, rules model.SmartRules) (model.SmartRules, error) {
	if err := s.store.Settings.UpdateSmartRules(ctx, rules); err != nil {
		return model.SmartRules{}, fmt.Errorf("updating smart rules: %w", err)
	}
	log.Info().
		Bool("weather", rules.WeatherAdjust).
		Bool("moisture", rules.MoistureAdjust).
		Bool("temperature", rules.TemperatureAdjust).
		Bool("light", rules.LightAdjust).
		Msg("Smart rules updated")
	return rules, nil
}

func (s *Service) ListCrops(ctx context.Context) ([]model.Crop, error) {
	return s.store.Crops.FindAll(ctx)
}

func (s *Service) GetCrop(ctx context.Context, id int) (model.Crop, error) {
	return s.store.Crops.FindByID(ctx, id)
}

func (s *Service) CreateCrop(ctx context.Context, crop model.Crop) (model.Crop, error) {
	if err := crop.Validate(); err != nil {
		return model.Crop{}, err
	}
	return s.store.Crops.Create(ctx, crop)
}

// UpdateCrop merges the non-empty fields of patch onto the stored crop.
func (s *Service) UpdateCrop(ctx context.Context, id int, patch model.Crop) (model.Crop, error) {
	crop, err := s.store.Crops.FindByID(ctx, id)
	if err != nil {
		return model.Crop{}, err
	}
	merged := mergeCrop(crop, patch)
	if err := merged.Validate(); err != nil {
		return model.Crop{}, err
	}
	return s.store.Crops.Update(ctx, id, merged)
}

func mergeCrop(crop, patch model.Crop) model.Crop {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&crop.Name, patch.Name)
	set(&crop.Type, patch.Type)
	set(&crop.OptimalTemperature, patch.OptimalTemperature)
	set(&crop.OptimalHumidity, patch.OptimalHumidity)
	set(&crop.OptimalLight, patch.OptimalLight)
	set(&crop.OptimalSoilMoisture, patch.OptimalSoilMoisture)
	set(&crop.GrowthStage, patch.GrowthStage)
	set(&crop.PlantedDate, patch.PlantedDate)
	set(&crop.HarvestDate, patch.HarvestDate)
	set(&crop.Notes, patch.Notes)
	return crop
}

func (s *Service) DeleteCrop(ctx context.Context, id int) error {
	return s.store.Crops.Delete(ctx, id)
}

func (s *Service) EnvironmentHistory() []model.EnvironmentSample {
	if s.opts.History == nil {
		return []model.EnvironmentSample{}
	}
	return s.opts.History.Samples()
}

func (s *Service) Forecast() []model.WeatherForecast {
	return append([]model.WeatherForecast{}, s.opts.Forecast...)
}

// Overview aggregates the dashboard summary. Nothing in it is stored.
func (s *Service) Overview(ctx context.Context) (model.Overview, error) {
	zones, err := s.store.Zones.FindAll(ctx)
	if err != nil {
		return model.Overview{}, fmt.Errorf("loading zones: %w", err)
	}
	schedules, err := s.store.Schedules.FindAll(ctx)
	if err != nil {
		return model.Overview{}, fmt.Errorf("loading schedules: %w", err)
	}
	events, err := s.store.Events.FindAll(ctx)
	if err != nil {
		return model.Overview{}, fmt.Errorf("loading events: %w", err)
	}

	now := s.clock.Now().In(s.opts.Location)
	ov := model.Overview{
		TotalZones:           len(zones),
		TempOptimalRange:     TempOptimalRange,
		HumidityOptimalRange: HumidityOptimalRange,
		MoistureOptimalRange: MoistureOptimalRange,
		LightOptimalRange:    LightOptimalRange,
		CO2OptimalRange:      CO2OptimalRange,
	}

	var sum model.Readings
	for _, z := range zones {
		if z.Active {
			ov.ActiveZones++
		}
		sum.Temperature += z.Temperature
		sum.Humidity += z.Humidity
		sum.Moisture += z.Moisture
		sum.Light += z.Light
		sum.CO2 += z.CO2
	}
	if n := float64(len(zones)); n > 0 {
		ov.AvgTemperature = math.Round(sum.Temperature/n*10) / 10
		ov.AvgHumidity = math.Round(sum.Humidity / n)
		ov.AvgMoisture = math.Round(sum.Moisture / n)
		ov.LightIntensity = math.Round(sum.Light / n)
		ov.CO2Level = math.Round(sum.CO2 / n)
	}
	if ov.CO2Level == 0 {
		ov.CO2Level = defaultCO2
	}

	current := wateringMinutes(events, now.Add(-24*time.Hour), now)
	previous := wateringMinutes(events, now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	ov.WaterUsage = math.Round(current*s.opts.LitersPerMinute*10) / 10
	ov.WaterUsageChange = percentChange(previous, current)

	if next, sched, ok := nextRun(schedules, now); ok {
		ov.NextScheduledTime = model.TimeOfDayOf(next).Label()
		ov.NextScheduledDay = model.DayLabel(next, now)
		ov.NextScheduledZones = model.ZonesLabel(sched.Zones)
	}
	return ov, nil
}

func (s *Service) Dashboard(ctx context.Context) (model.Dashboard, error) {
	ov, err := s.Overview(ctx)
	if err != nil {
		return model.Dashboard{}, err
	}
	zones, err := s.store.Zones.FindAll(ctx)
	if err != nil {
		return model.Dashboard{}, fmt.Errorf("loading zones: %w", err)
	}
	schedules, err := s.store.Schedules.FindAll(ctx)
	if err != nil {
		return model.Dashboard{}, fmt.Errorf("loading schedules: %w", err)
	}
	return model.Dashboard{
		Overview:           ov,
		Zones:              zones,
		Schedules:          schedules,
		EnvironmentHistory: s.EnvironmentHistory(),
	}, nil
}

// parseDraft validates a draft and checks that every zone exists before any
// store is touched.
func (s *Service) parseDraft(ctx context.Context, draft model.ScheduleDraft) (model.Schedule, error) {
	sched, err := draft.Parse()
	if err != nil {
		return model.Schedule{}, err
	}

	verr := &model.ValidationError{}
	for _, zoneID := range sched.Zones {
		if _, err := s.store.Zones.FindByID(ctx, zoneID); err != nil {
			verr.Problems = append(verr.Problems, fmt.Sprintf("unknown zone %d", zoneID))
		}
	}
	if len(verr.Problems) > 0 {
		return model.Schedule{}, verr
	}
	return sched, nil
}

func (s *Service) refreshLabels(ctx context.Context) {
	if s.opts.Labels == nil {
		return
	}
	if err := s.opts.Labels.RefreshNextScheduled(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to refresh next scheduled labels")
	}
}

// wateringMinutes sums the minutes of watering events that overlap
// [from, to). Open events count up to to.
func wateringMinutes(events []model.ActionEvent, from, to time.Time) float64 {
	var total time.Duration
	for _, e := range events {
		if !e.HasAction(string(model.ActionWatering)) {
			continue
		}
		start := e.StartTime
		end := to
		if e.EndTime != nil {
			end = *e.EndTime
		}
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		if end.After(start) {
			total += end.Sub(start)
		}
	}
	return total.Minutes()
}

func percentChange(previous, current float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return math.Round((current - previous) / previous * 100)
}

// nextRun finds the earliest upcoming firing across active schedules. Ties
// go to the schedule listed first.
func nextRun(schedules []model.Schedule, now time.Time) (time.Time, model.Schedule, bool) {
	var (
		best      time.Time
		bestSched model.Schedule
		found     bool
	)
	for _, sched := range schedules {
		run, ok := sched.NextRun(now)
		if !ok {
			continue
		}
		if !found || run.Before(best) {
			best, bestSched, found = run, sched, true
		}
	}
	return best, bestSched, found
}

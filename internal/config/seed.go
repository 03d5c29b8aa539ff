package config

import (
	"fmt"

	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
	"github.com/thatsimonsguy/greenhouse-controller/internal/store"
)

// SeedConfig provisions a fresh backend and the reference data served to
// the dashboard.
type SeedConfig struct {
	Zones      []model.Zone              `yaml:"zones"`
	Schedules  []ScheduleSeed            `yaml:"schedules"`
	Crops      []model.Crop              `yaml:"crops"`
	SmartRules model.SmartRules          `yaml:"smart_rules"`
	Forecast   []model.WeatherForecast   `yaml:"forecast"`
	History    []model.EnvironmentSample `yaml:"history"`
}

type ScheduleSeed struct {
	ID                  int   `yaml:"id"`
	Active              *bool `yaml:"active"`
	model.ScheduleDraft `yaml:",inline"`
}

// Snapshot converts the seed into backend state. Schedules without an id
// are numbered after the highest explicit one.
func (s SeedConfig) Snapshot() (store.Snapshot, error) {
	snap := store.Snapshot{
		Zones:      append([]model.Zone(nil), s.Zones...),
		SmartRules: s.SmartRules,
		Crops:      append([]model.Crop(nil), s.Crops...),
	}

	next := 1
	for _, seed := range s.Schedules {
		if seed.ID >= next {
			next = seed.ID + 1
		}
	}

	for _, seed := range s.Schedules {
		sched, err := seed.Parse()
		if err != nil {
			return store.Snapshot{}, fmt.Errorf("seed schedule %q: %w", seed.Name, err)
		}
		sched.ID = seed.ID
		if sched.ID == 0 {
			sched.ID = next
			next++
		}
		if seed.Active != nil {
			sched.Active = *seed.Active
		}
		snap.Schedules = append(snap.Schedules, sched)
	}

	for i := range snap.Zones {
		snap.Zones[i].Readings = snap.Zones[i].Readings.Clamp()
	}
	return snap, nil
}

func (s SeedConfig) problems() []string {
	var problems []string

	zoneIDs := map[int]bool{}
	for _, z := range s.Zones {
		if z.ID <= 0 {
			problems = append(problems, fmt.Sprintf("seed zone %q needs a positive id", z.Name))
			continue
		}
		if zoneIDs[z.ID] {
			problems = append(problems, fmt.Sprintf("seed zone id %d is duplicated", z.ID))
		}
		zoneIDs[z.ID] = true
	}

	scheduleIDs := map[int]bool{}
	for _, seed := range s.Schedules {
		if seed.ID != 0 {
			if scheduleIDs[seed.ID] {
				problems = append(problems, fmt.Sprintf("seed schedule id %d is duplicated", seed.ID))
			}
			scheduleIDs[seed.ID] = true
		}
		sched, err := seed.Parse()
		if err != nil {
			problems = append(problems, fmt.Sprintf("seed schedule %q: %v", seed.Name, err))
			continue
		}
		for _, zoneID := range sched.Zones {
			if !zoneIDs[zoneID] {
				problems = append(problems, fmt.Sprintf("seed schedule %q references unknown zone %d", seed.Name, zoneID))
			}
		}
	}
	return problems
}

// DefaultSeed is the demonstration greenhouse used when the config file
// does not provide one.
func DefaultSeed() SeedConfig {
	inactive := false
	return SeedConfig{
		Zones: []model.Zone{
			{ID: 1, Name: "Vanilla Orchids", Readings: model.Readings{Temperature: 26.5, Humidity: 82, Moisture: 68, Light: 5200, CO2: 450}, CropType: "Vanilla Orchid", LastWatered: "Today, 6:00 AM", NextScheduled: "Tomorrow, 5:30 AM"},
			{ID: 2, Name: "Saffron Crocus", Readings: model.Readings{Temperature: 17.2, Humidity: 55, Moisture: 62, Light: 7800, CO2: 420}, CropType: "Saffron Crocus", LastWatered: "Today, 6:15 AM", NextScheduled: "Tomorrow, 5:45 AM"},
			{ID: 3, Name: "Seedling Nursery", Readings: model.Readings{Temperature: 24.8, Humidity: 75, Moisture: 71, Light: 4500, CO2: 480}, CropType: "Mixed Seedlings", LastWatered: "Yesterday, 6:00 AM", NextScheduled: "Tomorrow, 6:00 AM"},
			{ID: 4, Name: "Experimental Zone", Readings: model.Readings{Temperature: 22.3, Humidity: 68, Moisture: 65, Light: 6200, CO2: 430}, CropType: "Research Crops", LastWatered: "Yesterday, 6:15 AM", NextScheduled: "Tomorrow, 6:15 AM"},
			{ID: 5, Name: "Tropical Plants", Readings: model.Readings{Temperature: 28.1, Humidity: 85, Moisture: 72, Light: 4800, CO2: 460}, CropType: "Tropical Mix", LastWatered: "Yesterday, 6:30 AM", NextScheduled: "Tomorrow, 6:30 AM"},
			{ID: 6, Name: "Arid Plants", Readings: model.Readings{Temperature: 23.5, Humidity: 45, Moisture: 52, Light: 8500, CO2: 410}, CropType: "Desert Plants", LastWatered: "Yesterday, 6:45 AM", NextScheduled: "Tomorrow, 6:45 AM"},
		},
		Schedules: []ScheduleSeed{
			{ID: 1, ScheduleDraft: model.ScheduleDraft{Name: "Morning Routine", Time: "5:30 AM", Days: []string{"Mon", "Wed", "Fri"}, Zones: []int{1, 2, 3}, Duration: 15, Actions: []string{"Watering", "Ventilation"}}},
			{ID: 2, ScheduleDraft: model.ScheduleDraft{Name: "Evening Misting", Time: "6:30 PM", Days: []string{"Tue", "Thu", "Sat"}, Zones: []int{1, 3, 5}, Duration: 10, Actions: []string{"Misting", "Lighting"}}},
			{ID: 3, Active: &inactive, ScheduleDraft: model.ScheduleDraft{Name: "Weekend Care", Time: "7:00 AM", Days: []string{"Sun"}, Zones: []int{1, 2, 3, 4, 5, 6}, Duration: 30, Actions: []string{"Watering", "Ventilation", "Misting", "Heating"}}},
		},
		Crops: []model.Crop{
			{
				ID:                  1,
				Name:                "Vanilla Orchid",
				Type:                "Tropical Orchid",
				OptimalTemperature:  "24-30°C",
				OptimalHumidity:     "80-85%",
				OptimalLight:        "Filtered sunlight",
				OptimalSoilMoisture: "65-75%",
				GrowthStage:         "Vegetative",
				PlantedDate:         "2023-10-15",
				Notes:               "Climbing well on support structures",
			},
			{
				ID:                  2,
				Name:                "Saffron Crocus",
				Type:                "Flowering Plant",
				OptimalTemperature:  "15-18°C",
				OptimalHumidity:     "40-60%",
				OptimalLight:        "Full sun",
				OptimalSoilMoisture: "50-65%",
				GrowthStage:         "Flowering",
				PlantedDate:         "2023-09-01",
				HarvestDate:         "2023-11-15",
				Notes:               "Flowers developing well, expect good saffron yield",
			},
		},
		SmartRules: model.SmartRules{
			WeatherAdjust:     true,
			MoistureAdjust:    true,
			TemperatureAdjust: true,
			LightAdjust:       true,
		},
		Forecast: []model.WeatherForecast{
			{Day: "Today", Temp: 28, Condition: "Sunny", Precipitation: "0%"},
			{Day: "Tomorrow", Temp: 26, Condition: "Partly Cloudy", Precipitation: "10%"},
			{Day: "Wednesday", Temp: 24, Condition: "Cloudy", Precipitation: "20%"},
			{Day: "Thursday", Temp: 22, Condition: "Light Rain", Precipitation: "60%"},
			{Day: "Friday", Temp: 23, Condition: "Showers", Precipitation: "70%"},
		},
		History: []model.EnvironmentSample{
			{Date: "Mon", Temperature: 25.2, Humidity: 78, SoilMoisture: 65, Light: 5500, CO2: 440},
			{Date: "Tue", Temperature: 24.8, Humidity: 76, SoilMoisture: 62, Light: 5800, CO2: 430},
			{Date: "Wed", Temperature: 26.1, Humidity: 80, SoilMoisture: 68, Light: 5200, CO2: 450},
			{Date: "Thu", Temperature: 25.5, Humidity: 79, SoilMoisture: 70, Light: 5400, CO2: 445},
			{Date: "Fri", Temperature: 24.9, Humidity: 77, SoilMoisture: 67, Light: 5600, CO2: 435},
			{Date: "Sat", Temperature: 25.3, Humidity: 78, SoilMoisture: 66, Light: 5500, CO2: 440},
			{Date: "Sun", Temperature: 25.8, Humidity: 81, SoilMoisture: 69, Light: 5300, CO2: 455},
		},
	}
}

package model

import (
	"time"
)

type ActionKind string

const (
	ActionWatering    ActionKind = "Watering"
	ActionVentilation ActionKind = "Ventilation"
	ActionLighting    ActionKind = "Lighting"
	ActionHeating     ActionKind = "Heating"
	ActionCooling     ActionKind = "Cooling"
	ActionMisting     ActionKind = "Misting"
)

// SystemActivation labels events opened by a direct zone toggle. It is never
// a valid schedule action.
const SystemActivation = "System Activation"

var ActionKinds = []ActionKind{
	ActionWatering,
	ActionVentilation,
	ActionLighting,
	ActionHeating,
	ActionCooling,
	ActionMisting,
}

func (k ActionKind) Valid() bool {
	for _, known := range ActionKinds {
		if k == known {
			return true
		}
	}
	return false
}

type Zone struct {
	ID            int    `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Active        bool   `json:"active" yaml:"active"`
	Readings      `yaml:",inline"`
	LastWatered   string `json:"lastWatered" yaml:"lastWatered"`
	NextScheduled string `json:"nextScheduled" yaml:"nextScheduled"`
	CropType      string `json:"cropType,omitempty" yaml:"cropType,omitempty"`
}

// ZonePatch is a shallow merge applied by a zone store. Nil fields are left
// untouched.
type ZonePatch struct {
	Name          *string
	Active        *bool
	Readings      *Readings
	LastWatered   *string
	NextScheduled *string
	CropType      *string
}

func (p ZonePatch) Apply(z Zone) Zone {
	if p.Name != nil {
		z.Name = *p.Name
	}
	if p.Active != nil {
		z.Active = *p.Active
	}
	if p.Readings != nil {
		z.Readings = *p.Readings
	}
	if p.LastWatered != nil {
		z.LastWatered = *p.LastWatered
	}
	if p.NextScheduled != nil {
		z.NextScheduled = *p.NextScheduled
	}
	if p.CropType != nil {
		z.CropType = *p.CropType
	}
	return z
}

type ActionEvent struct {
	ID          int        `json:"id"`
	ZoneID      int        `json:"zoneId"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	IsManual    bool       `json:"isManual"`
	IsScheduled bool       `json:"isScheduled"`
	ScheduleID  *int       `json:"scheduleId,omitempty"`
	Actions     []string   `json:"actions"`
}

func (e ActionEvent) Open() bool {
	return e.EndTime == nil
}

// Duration of a closed event, or of an open one measured up to now.
func (e ActionEvent) Duration(now time.Time) time.Duration {
	end := now
	if e.EndTime != nil {
		end = *e.EndTime
	}
	return end.Sub(e.StartTime)
}

func (e ActionEvent) HasAction(label string) bool {
	for _, a := range e.Actions {
		if a == label {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices or pointers with e.
func (e ActionEvent) Clone() ActionEvent {
	if e.EndTime != nil {
		end := *e.EndTime
		e.EndTime = &end
	}
	if e.ScheduleID != nil {
		id := *e.ScheduleID
		e.ScheduleID = &id
	}
	e.Actions = append([]string(nil), e.Actions...)
	return e
}

type EventPatch struct {
	EndTime *time.Time
}

func (p EventPatch) Apply(e ActionEvent) ActionEvent {
	if p.EndTime != nil {
		end := *p.EndTime
		e.EndTime = &end
	}
	return e
}

type SmartRules struct {
	WeatherAdjust     bool `json:"weatherAdjust" yaml:"weatherAdjust"`
	MoistureAdjust    bool `json:"moistureAdjust" yaml:"moistureAdjust"`
	TemperatureAdjust bool `json:"temperatureAdjust" yaml:"temperatureAdjust"`
	LightAdjust       bool `json:"lightAdjust" yaml:"lightAdjust"`
}

type WeatherForecast struct {
	Day           string  `json:"day" yaml:"day"`
	Temp          float64 `json:"temp" yaml:"temp"`
	Condition     string  `json:"condition" yaml:"condition"`
	Precipitation string  `json:"precipitation" yaml:"precipitation"`
}

type EnvironmentSample struct {
	Date         string  `json:"date" yaml:"date"`
	Temperature  float64 `json:"temperature" yaml:"temperature"`
	Humidity     float64 `json:"humidity" yaml:"humidity"`
	SoilMoisture float64 `json:"soilMoisture" yaml:"soilMoisture"`
	Light        float64 `json:"light" yaml:"light"`
	CO2          float64 `json:"co2" yaml:"co2"`
}

type Overview struct {
	ActiveZones          int     `json:"activeZones"`
	TotalZones           int     `json:"totalZones"`
	WaterUsage           float64 `json:"waterUsage"`
	WaterUsageChange     float64 `json:"waterUsageChange"`
	AvgTemperature       float64 `json:"avgTemperature"`
	TempOptimalRange     string  `json:"tempOptimalRange"`
	AvgHumidity          float64 `json:"avgHumidity"`
	HumidityOptimalRange string  `json:"humidityOptimalRange"`
	AvgMoisture          float64 `json:"avgMoisture"`
	MoistureOptimalRange string  `json:"moistureOptimalRange"`
	LightIntensity       float64 `json:"lightIntensity"`
	LightOptimalRange    string  `json:"lightOptimalRange"`
	CO2Level             float64 `json:"co2Level"`
	CO2OptimalRange      string  `json:"co2OptimalRange"`
	NextScheduledTime    string  `json:"nextScheduledTime"`
	NextScheduledDay     string  `json:"nextScheduledDay"`
	NextScheduledZones   string  `json:"nextScheduledZones"`
}

type Dashboard struct {
	Overview           Overview            `json:"overview"`
	Zones              []Zone              `json:"zones"`
	Schedules          []Schedule          `json:"schedules"`
	EnvironmentHistory []EnvironmentSample `json:"environmentHistory"`
}

package model

import "math"

type Readings struct {
	Temperature float64 `json:"temperature" yaml:"temperature"`
	Humidity    float64 `json:"humidity" yaml:"humidity"`
	Moisture    float64 `json:"moisture" yaml:"moisture"`
	Light       float64 `json:"light" yaml:"light"`
	CO2         float64 `json:"co2" yaml:"co2"`
}

type Bound struct {
	Min float64
	Max float64
}

func (b Bound) Clamp(v float64) float64 {
	return math.Max(b.Min, math.Min(b.Max, v))
}

func (b Bound) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Physical limits of the greenhouse sensors.
var (
	TemperatureBound = Bound{Min: 15, Max: 35}
	HumidityBound    = Bound{Min: 30, Max: 95}
	MoistureBound    = Bound{Min: 45, Max: 85}
	LightBound       = Bound{Min: 100, Max: 10000}
	CO2Bound         = Bound{Min: 350, Max: 1500}
)

func (r Readings) Clamp() Readings {
	return Readings{
		Temperature: TemperatureBound.Clamp(r.Temperature),
		Humidity:    HumidityBound.Clamp(r.Humidity),
		Moisture:    MoistureBound.Clamp(r.Moisture),
		Light:       LightBound.Clamp(r.Light),
		CO2:         CO2Bound.Clamp(r.CO2),
	}
}

func (r Readings) InBounds() bool {
	return TemperatureBound.Contains(r.Temperature) &&
		HumidityBound.Contains(r.Humidity) &&
		MoistureBound.Contains(r.Moisture) &&
		LightBound.Contains(r.Light) &&
		CO2Bound.Contains(r.CO2)
}

package model

import "strings"

type Crop struct {
	ID                  int    `json:"id" yaml:"id"`
	Name                string `json:"name" yaml:"name"`
	Type                string `json:"type" yaml:"type"`
	OptimalTemperature  string `json:"optimalTemperature" yaml:"optimalTemperature"`
	OptimalHumidity     string `json:"optimalHumidity" yaml:"optimalHumidity"`
	OptimalLight        string `json:"optimalLight" yaml:"optimalLight"`
	OptimalSoilMoisture string `json:"optimalSoilMoisture" yaml:"optimalSoilMoisture"`
	GrowthStage         string `json:"growthStage" yaml:"growthStage"`
	PlantedDate         string `json:"plantedDate" yaml:"plantedDate"`
	HarvestDate         string `json:"harvestDate,omitempty" yaml:"harvestDate,omitempty"`
	Notes               string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

func (c Crop) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(c.Name) == "" {
		verr.add("name is required")
	}
	if strings.TrimSpace(c.Type) == "" {
		verr.add("type is required")
	}
	return verr.orNil()
}

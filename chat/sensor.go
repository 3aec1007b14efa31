// Package chat routes user messages to the right engine: knowledge
// questions go to retrieval-augmented generation, sensor readings to the
// rule-based diagnostics engine, and mixed messages to both.
package chat

import (
	"regexp"
	"strconv"
	"strings"
)

// GrowthStage of the plant, used to pick TDS thresholds.
type GrowthStage string

const (
	StageSeedling   GrowthStage = "seedling"
	StageVegetative GrowthStage = "vegetative"
	StageFruiting   GrowthStage = "fruiting"
)

// SensorReading holds the sensor values extracted from a message.
// Nil fields were not mentioned.
type SensorReading struct {
	PH          *float64    `json:"ph,omitempty"`
	TDS         *float64    `json:"tds,omitempty"`
	Temperature *float64    `json:"temperature,omitempty"`
	Humidity    *float64    `json:"humidity,omitempty"`
	GrowthStage GrowthStage `json:"growth_stage"`
}

var (
	phPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)pH\s*[:=]?\s*([0-9.]+)`),
		regexp.MustCompile(`(?i)pH\s+saya\s+([0-9.]+)`),
	}
	tdsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:TDS|EC)\s*[:=]?\s*([0-9.]+)`),
		regexp.MustCompile(`(?i)(?:TDS|EC)\s+saya\s+([0-9.]+)`),
	}
	tempPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:suhu|temp(?:eratur)?)\s*[:=]?\s*([0-9.]+)`),
		regexp.MustCompile(`([0-9.]+)\s*°?C\b`),
	}
	humidityPattern = regexp.MustCompile(`(?i)(?:kelembapan|humidity|RH)\s*[:=]?\s*([0-9.]+)`)
)

var growthKeywords = map[GrowthStage][]string{
	StageSeedling:   {"seedling", "bibit", "biji", "semai", "seed"},
	StageVegetative: {"vegetatif", "vegetative", "daun", "leaf", "tumbuh"},
	StageFruiting:   {"fruiting", "berbuah", "bunga", "flower", "buah", "fruit"},
}

// ExtractSensorData pulls sensor values out of a free-text message.
// Returns nil when no value was found.
func ExtractSensorData(message string) *SensorReading {
	reading := &SensorReading{GrowthStage: StageVegetative}

	reading.PH = matchFirst(phPatterns, message)
	reading.TDS = matchFirst(tdsPatterns, message)
	reading.Temperature = matchFirst(tempPatterns, message)
	reading.Humidity = matchFirst([]*regexp.Regexp{humidityPattern}, message)

	lower := strings.ToLower(message)
	for _, stage := range []GrowthStage{StageSeedling, StageVegetative, StageFruiting} {
		if containsAny(lower, growthKeywords[stage]) {
			reading.GrowthStage = stage
			break
		}
	}

	if reading.PH == nil && reading.TDS == nil && reading.Temperature == nil && reading.Humidity == nil {
		return nil
	}
	return reading
}

func matchFirst(patterns []*regexp.Regexp, message string) *float64 {
	for _, pattern := range patterns {
		m := pattern.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSuffix(m[1], "."), 64)
		if err != nil {
			continue
		}
		return &value
	}
	return nil
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

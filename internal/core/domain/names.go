package domain

import "slices"

var Languages = []string{"en", "it"}

const DEFAULT_LANGUAGE = "en"

type nameKey struct {
	kind     SensorKind
	language string
}

var sensorNames = map[nameKey]string{
	{SENSOR_KIND_POWER_ENERGY, "en"}: "Power/Energy",
	{SENSOR_KIND_VOLTAGE, "en"}:      "Voltage",
	{SENSOR_KIND_CURRENT, "en"}:      "Current",
	{SENSOR_KIND_FREQUENCY, "en"}:    "Frequency",
	{SENSOR_KIND_POWER_FACTOR, "en"}: "Power Factor",

	{SENSOR_KIND_POWER_ENERGY, "it"}: "Potenza/Energia",
	{SENSOR_KIND_VOLTAGE, "it"}:      "Tensione",
	{SENSOR_KIND_CURRENT, "it"}:      "Corrente",
	{SENSOR_KIND_FREQUENCY, "it"}:    "Frequenza",
	{SENSOR_KIND_POWER_FACTOR, "it"}: "Fattore di Potenza",
}

func SupportedLanguage(language string) bool {
	return slices.Contains(Languages, language)
}

// SensorNames is the display name table for one language.
type SensorNames struct {
	Language string
}

func NewSensorNames(language string) SensorNames {
	if !SupportedLanguage(language) {
		language = DEFAULT_LANGUAGE
	}
	return SensorNames{Language: language}
}

func (n SensorNames) Name(kind SensorKind) string {
	if name, ok := sensorNames[nameKey{kind, n.Language}]; ok {
		return name
	}
	return sensorNames[nameKey{kind, DEFAULT_LANGUAGE}]
}

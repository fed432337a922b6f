package domain

import (
	"fmt"
	"strconv"

	"github.com/CreasolTech/pzem2mqtt/pkg/pzem_modbus"
)

type SensorKind int

const (
	SENSOR_KIND_POWER_ENERGY SensorKind = iota + 1
	SENSOR_KIND_VOLTAGE
	SENSOR_KIND_CURRENT
	SENSOR_KIND_FREQUENCY
	SENSOR_KIND_POWER_FACTOR
)

var SensorKinds = []SensorKind{
	SENSOR_KIND_POWER_ENERGY,
	SENSOR_KIND_VOLTAGE,
	SENSOR_KIND_CURRENT,
	SENSOR_KIND_FREQUENCY,
	SENSOR_KIND_POWER_FACTOR,
}

// SensorDescriptor is handed to the sink when a unit is created.
type SensorDescriptor struct {
	Kind     SensorKind
	Slave    uint8
	Position int
}

func (k SensorKind) String() string {
	switch k {
	case SENSOR_KIND_POWER_ENERGY:
		return "power_energy"
	case SENSOR_KIND_VOLTAGE:
		return "voltage"
	case SENSOR_KIND_CURRENT:
		return "current"
	case SENSOR_KIND_FREQUENCY:
		return "frequency"
	case SENSOR_KIND_POWER_FACTOR:
		return "power_factor"
	}
	return fmt.Sprintf("kind_%d", int(k))
}

// SensorValues stringifies the part of m published on a unit of the given kind.
// The power/energy unit carries two values: power first, then energy.
func SensorValues(kind SensorKind, m *pzem_modbus.Measurement) []string {
	switch kind {
	case SENSOR_KIND_POWER_ENERGY:
		return []string{formatFloat(m.Power, 1), strconv.FormatUint(uint64(m.Energy), 10)}
	case SENSOR_KIND_VOLTAGE:
		return []string{formatFloat(m.Voltage, 1)}
	case SENSOR_KIND_CURRENT:
		return []string{formatFloat(m.Current, 3)}
	case SENSOR_KIND_FREQUENCY:
		return []string{formatFloat(m.Frequency, 1)}
	case SENSOR_KIND_POWER_FACTOR:
		return []string{formatFloat(m.PowerFactor, 2)}
	}
	return nil
}

func formatFloat(value float64, decimals int) string {
	return strconv.FormatFloat(value, 'f', decimals, 64)
}

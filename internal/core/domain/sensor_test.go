package domain

import (
	"testing"

	"github.com/CreasolTech/pzem2mqtt/pkg/pzem_modbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensorValues(t *testing.T) {

	assert := assert.New(t)

	m, err := pzem_modbus.DecodeRegisters(pzem_modbus.PZEM016TestRegisters())
	require.NoError(t, err)

	assert.Equal([]string{"500.0", "120000"}, SensorValues(SENSOR_KIND_POWER_ENERGY, m))
	assert.Equal([]string{"230.0"}, SensorValues(SENSOR_KIND_VOLTAGE, m))
	assert.Equal([]string{"66.536"}, SensorValues(SENSOR_KIND_CURRENT, m))
	assert.Equal([]string{"50.0"}, SensorValues(SENSOR_KIND_FREQUENCY, m))
	assert.Equal([]string{"0.95"}, SensorValues(SENSOR_KIND_POWER_FACTOR, m))
	assert.Nil(SensorValues(SensorKind(9), m))
}

func TestSensorNames(t *testing.T) {

	assert := assert.New(t)

	en := NewSensorNames("en")
	assert.Equal("Power/Energy", en.Name(SENSOR_KIND_POWER_ENERGY))
	assert.Equal("Power Factor", en.Name(SENSOR_KIND_POWER_FACTOR))

	it := NewSensorNames("it")
	assert.Equal("Tensione", it.Name(SENSOR_KIND_VOLTAGE))
	assert.Equal("Fattore di Potenza", it.Name(SENSOR_KIND_POWER_FACTOR))

	fallback := NewSensorNames("de")
	assert.Equal("en", fallback.Language)
	assert.Equal("Frequency", fallback.Name(SENSOR_KIND_FREQUENCY))
}

func TestUnitSensors(t *testing.T) {

	assert := assert.New(t)

	bridge := BridgeDevice("pzem")
	meter := MeterDevice(bridge, 0, 2)

	composite := UnitSensors(meter, 1, SENSOR_KIND_POWER_ENERGY, "Potenza/Energia")
	assert.Len(composite, 2)
	assert.Equal("Potenza", composite[0].Name)
	assert.Equal("W", composite[0].UnitOfMeasurement)
	assert.Equal("unit_1", composite[0].StateSensorId())
	assert.Equal("{{ value_json.power }}", composite[0].ValueTemplate)
	assert.Equal("Energia", composite[1].Name)
	assert.Equal(STATE_CLASS_TOTAL_INCREASING, composite[1].StateClass)
	assert.Equal("unit_1", composite[1].StateSensorId())
	assert.NotEqual(composite[0].UniqueId, composite[1].UniqueId)

	voltage := UnitSensors(meter, 2, SENSOR_KIND_VOLTAGE, "Voltage")
	assert.Len(voltage, 1)
	assert.Equal("unit_2", voltage[0].StateSensorId())
	assert.Equal(DEVICE_CLASS_VOLTAGE, voltage[0].DeviceClass)
	assert.Equal(bridge.Id, meter.ViaDevice)
}

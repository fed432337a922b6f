package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE       = "bridge"
	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"
	DEVICE_CLASS_CURRENT         = "current"
	DEVICE_CLASS_ENERGY          = "energy"
	DEVICE_CLASS_FREQUENCY       = "frequency"
	DEVICE_CLASS_POWER           = "power"
	DEVICE_CLASS_POWER_FACTOR    = "power_factor"
	DEVICE_CLASS_VOLTAGE         = "voltage"
	DEVICE_CLASS_CONNECTIVITY    = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC      = "diagnostic"
	SENSOR_TYPE_SENSOR           = "sensor"
	SENSOR_TYPE_BINARY           = "binary_sensor"
	FIELD_POWER                  = "power"
	FIELD_ENERGY                 = "energy"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("pzem_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "CreasolTech",
		Model:        "pzem2mqtt",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("PZEM bridge %s", md5HashShort(baseTopic)),
	}
}

// MeterDevice is the device of the meter at list position `position`.
// It is keyed by position, not by slave address, like the sensor units.
func MeterDevice(bridge Device, position int, slave uint8) Device {
	return Device{
		Id:           fmt.Sprintf("%s_meter_%d", bridge.Id, position+1),
		Manufacturer: "Peacefair",
		Model:        "PZEM-016",
		Name:         fmt.Sprintf("PZEM meter %d (slave %d)", position+1, slave),
		ViaDevice:    bridge.Id,
	}
}

func UnitSensorId(unit int) string {
	return fmt.Sprintf("unit_%d", unit)
}

// UnitSensors describes the home automation entities exposed for one unit.
// The power/energy unit is split in two entities reading the same state.
func UnitSensors(device Device, unit int, kind SensorKind, name string) []GenericSensor {
	id := UnitSensorId(unit)
	switch kind {
	case SENSOR_KIND_POWER_ENERGY:
		powerName, energyName := splitName(name)
		return []GenericSensor{
			{
				Device:            device,
				Id:                fmt.Sprintf("%s_%s", id, FIELD_POWER),
				StateId:           id,
				SensorType:        SENSOR_TYPE_SENSOR,
				Name:              powerName,
				StateClass:        STATE_CLASS_MEASUREMENT,
				DeviceClass:       DEVICE_CLASS_POWER,
				UnitOfMeasurement: "W",
				ValueTemplate:     fmt.Sprintf("{{ value_json.%s }}", FIELD_POWER),
				UniqueId:          uniqueId(device.Id, fmt.Sprintf("%s_%s", id, FIELD_POWER)),
			},
			{
				Device:            device,
				Id:                fmt.Sprintf("%s_%s", id, FIELD_ENERGY),
				StateId:           id,
				SensorType:        SENSOR_TYPE_SENSOR,
				Name:              energyName,
				StateClass:        STATE_CLASS_TOTAL_INCREASING,
				DeviceClass:       DEVICE_CLASS_ENERGY,
				UnitOfMeasurement: "Wh",
				ValueTemplate:     fmt.Sprintf("{{ value_json.%s }}", FIELD_ENERGY),
				UniqueId:          uniqueId(device.Id, fmt.Sprintf("%s_%s", id, FIELD_ENERGY)),
			},
		}
	case SENSOR_KIND_VOLTAGE:
		return []GenericSensor{measurementSensor(device, id, name, DEVICE_CLASS_VOLTAGE, "V", "")}
	case SENSOR_KIND_CURRENT:
		return []GenericSensor{measurementSensor(device, id, name, DEVICE_CLASS_CURRENT, "A", "")}
	case SENSOR_KIND_FREQUENCY:
		return []GenericSensor{measurementSensor(device, id, name, DEVICE_CLASS_FREQUENCY, "Hz", "mdi:sine-wave")}
	case SENSOR_KIND_POWER_FACTOR:
		return []GenericSensor{measurementSensor(device, id, name, DEVICE_CLASS_POWER_FACTOR, "", "mdi:angle-acute")}
	}
	return nil
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {
	return []GenericSensor{{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	}}
}

func measurementSensor(device Device, id, name, deviceClass, unit, icon string) GenericSensor {
	return GenericSensor{
		Device:            device,
		Id:                id,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              name,
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       deviceClass,
		UnitOfMeasurement: unit,
		Icon:              icon,
		UniqueId:          uniqueId(device.Id, id),
	}
}

func splitName(name string) (string, string) {
	first, second, found := strings.Cut(name, "/")
	if !found {
		return name, name
	}
	return strings.TrimSpace(first), strings.TrimSpace(second)
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}

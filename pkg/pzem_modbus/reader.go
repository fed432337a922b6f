package pzem_modbus

import (
	"fmt"

	"go.uber.org/zap"
)

const (
	DRIVER_SIMONVETTER = "simonvetter"
	DRIVER_GOBURROW    = "goburrow"
)

func CreateMeterReader(driver string, serial SerialConfig, logger *zap.Logger, instrumentation *ModbusInstrument) (MeterReader, error) {
	switch driver {
	case "", DRIVER_SIMONVETTER:
		return CreateRTUMeterReader(serial, logger, instrumentation)
	case DRIVER_GOBURROW:
		return CreateGoburrowMeterReader(serial, logger, instrumentation), nil
	default:
		return nil, fmt.Errorf("unknown modbus driver %q", driver)
	}
}

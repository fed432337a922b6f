package pzem_modbus

import (
	"encoding/binary"
	"sync"

	"github.com/goburrow/modbus"
	"go.uber.org/zap"
)

// GoburrowMeterReader reads PZEM meters through github.com/goburrow/modbus.
// A fresh RTU handler is connected for each transaction and closed after it.
type GoburrowMeterReader struct {
	mu         sync.Mutex
	serial     SerialConfig
	instrument []ModbusInstrument
	logger     *zap.Logger
}

func CreateGoburrowMeterReader(serial SerialConfig, logger *zap.Logger, instrumentation *ModbusInstrument) *GoburrowMeterReader {
	serial = serial.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("driver", "goburrow"), zap.String("port", serial.Port))
	return &GoburrowMeterReader{
		serial:     serial,
		instrument: instruments(logger, instrumentation),
		logger:     logger,
	}
}

func (reader *GoburrowMeterReader) handler(slave uint8) *modbus.RTUClientHandler {
	handler := modbus.NewRTUClientHandler(reader.serial.Port)
	handler.BaudRate = int(reader.serial.BaudRate)
	handler.DataBits = int(DEFAULT_DATA_BITS)
	handler.Parity = "N"
	handler.StopBits = int(DEFAULT_STOP_BITS)
	handler.SlaveId = slave
	handler.Timeout = reader.serial.Timeout
	return handler
}

func (reader *GoburrowMeterReader) ReadRegisters(slave uint8) ([]uint16, error) {
	reader.mu.Lock()
	defer reader.mu.Unlock()

	handler := reader.handler(slave)
	if err := handler.Connect(); err != nil {
		return nil, transportError(slave, "open", err)
	}
	defer func() {
		if err := handler.Close(); err != nil {
			reader.logger.Warn("modbus: close failed", zap.Uint8("slave", slave), zap.Error(err))
		}
	}()

	raw, err := reader.readInputRegisters(modbus.NewClient(handler))
	if err != nil {
		return nil, transportError(slave, "read", err)
	}
	registers := unpackRegisters(raw)
	if err := checkBlockLength(slave, registers); err != nil {
		return nil, err
	}
	return registers, nil
}

func (reader *GoburrowMeterReader) readInputRegisters(client modbus.Client) ([]byte, error) {
	defer RecordTimer("ReadInputRegisters", reader.instrument)()
	return client.ReadInputRegisters(MEASUREMENT_START_ADDRESS, MEASUREMENT_REGISTER_COUNT)
}

func unpackRegisters(data []byte) []uint16 {
	out := make([]uint16, len(data)/2)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(data[2*i:])
	}
	return out
}

// ensure interface compliance
var _ MeterReader = (*GoburrowMeterReader)(nil)

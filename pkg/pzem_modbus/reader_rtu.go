package pzem_modbus

import (
	"fmt"
	"sync"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

// rtuClient is the subset of *modbus.ModbusClient used by RTUMeterReader.
type rtuClient interface {
	Open() error
	Close() error
	SetUnitId(id uint8) error
	ReadRegisters(addr uint16, quantity uint16, regType modbus.RegType) ([]uint16, error)
}

// RTUMeterReader reads PZEM meters through github.com/simonvetter/modbus.
// The serial port is opened before and closed after every transaction so
// that no slave holds the shared bus between reads.
type RTUMeterReader struct {
	mu         sync.Mutex
	client     rtuClient
	instrument []ModbusInstrument
	logger     *zap.Logger
}

func CreateRTUMeterReader(serial SerialConfig, logger *zap.Logger, instrumentation *ModbusInstrument) (*RTUMeterReader, error) {
	serial = serial.withDefaults()
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:      fmt.Sprintf("rtu://%s", serial.Port),
		Speed:    serial.BaudRate,
		DataBits: DEFAULT_DATA_BITS,
		Parity:   modbus.PARITY_NONE,
		StopBits: DEFAULT_STOP_BITS,
		Timeout:  serial.Timeout,
	})
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("driver", "simonvetter"), zap.String("port", serial.Port))
	return &RTUMeterReader{
		client:     client,
		instrument: instruments(logger, instrumentation),
		logger:     logger,
	}, nil
}

func (reader *RTUMeterReader) ReadRegisters(slave uint8) ([]uint16, error) {
	reader.mu.Lock()
	defer reader.mu.Unlock()

	if err := reader.client.Open(); err != nil {
		return nil, transportError(slave, "open", err)
	}
	defer func() {
		if err := reader.client.Close(); err != nil {
			reader.logger.Warn("modbus: close failed", zap.Uint8("slave", slave), zap.Error(err))
		}
	}()

	if err := reader.client.SetUnitId(slave); err != nil {
		return nil, transportError(slave, "set unit id", err)
	}

	registers, err := reader.readInputRegisters()
	if err != nil {
		return nil, transportError(slave, "read", err)
	}
	if err := checkBlockLength(slave, registers); err != nil {
		return nil, err
	}
	return registers, nil
}

func (reader *RTUMeterReader) readInputRegisters() ([]uint16, error) {
	defer RecordTimer("ReadInputRegisters", reader.instrument)()
	return reader.client.ReadRegisters(MEASUREMENT_START_ADDRESS, MEASUREMENT_REGISTER_COUNT, modbus.INPUT_REGISTER)
}

// ensure interface compliance
var _ MeterReader = (*RTUMeterReader)(nil)

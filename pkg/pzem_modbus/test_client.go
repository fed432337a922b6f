package pzem_modbus

import (
	"errors"
	"sync"
)

var ErrTestTimeout = errors.New("request timed out")

// TestMeterReader is a scripted MeterReader. Slaves without registers
// or with an error configured fail with a TransportError.
type TestMeterReader struct {
	mu        sync.Mutex
	registers map[uint8][]uint16
	errors    map[uint8]error
	calls     []uint8
}

func CreateTestMeterReader() *TestMeterReader {
	return &TestMeterReader{
		registers: map[uint8][]uint16{},
		errors:    map[uint8]error{},
	}
}

func (reader *TestMeterReader) WithRegisters(slave uint8, registers ...uint16) *TestMeterReader {
	reader.mu.Lock()
	defer reader.mu.Unlock()
	reader.registers[slave] = registers
	return reader
}

func (reader *TestMeterReader) WithError(slave uint8, err error) *TestMeterReader {
	reader.mu.Lock()
	defer reader.mu.Unlock()
	reader.errors[slave] = err
	return reader
}

func (reader *TestMeterReader) ReadRegisters(slave uint8) ([]uint16, error) {
	reader.mu.Lock()
	defer reader.mu.Unlock()
	reader.calls = append(reader.calls, slave)
	if err, ok := reader.errors[slave]; ok {
		return nil, transportError(slave, "read", err)
	}
	registers, ok := reader.registers[slave]
	if !ok {
		return nil, transportError(slave, "read", ErrTestTimeout)
	}
	return append([]uint16(nil), registers...), nil
}

// Calls returns the slaves read so far, in order.
func (reader *TestMeterReader) Calls() []uint8 {
	reader.mu.Lock()
	defer reader.mu.Unlock()
	return append([]uint8(nil), reader.calls...)
}

// PZEM016TestRegisters encodes 230.0 V, 66.536 A, 500.0 W, 120000 Wh, 50.0 Hz, PF 0.95.
func PZEM016TestRegisters() []uint16 {
	return []uint16{2300, 1000, 1, 5000, 0, 54464, 1, 500, 95}
}

// ensure interface compliance
var _ MeterReader = (*TestMeterReader)(nil)

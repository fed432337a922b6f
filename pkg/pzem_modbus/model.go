package pzem_modbus

import "time"

const (
	// PZEM-016 / PZEM-014 / PZEM-004T measurement block
	MEASUREMENT_START_ADDRESS  uint16 = 0
	MEASUREMENT_REGISTER_COUNT uint16 = 9

	DEFAULT_BAUD_RATE    uint          = 9600
	DEFAULT_DATA_BITS    uint          = 8
	DEFAULT_STOP_BITS    uint          = 1
	DEFAULT_READ_TIMEOUT time.Duration = 500 * time.Millisecond
)

type Measurement struct {
	// Line voltage in V
	Voltage float64
	// Line current in A
	Current float64
	// Active power in W
	Power float64
	// Cumulative active energy in Wh, as reported by the meter
	Energy uint32
	// Line frequency in Hz
	Frequency float64
	// Power factor (0-1)
	PowerFactor float64
}

// SerialConfig describes the shared RS-485 line. Data bits, parity and
// stop bits are fixed to 8N1 by the meters.
type SerialConfig struct {
	Port     string
	BaudRate uint
	Timeout  time.Duration
}

// MeterReader performs one "read input registers" transaction against a
// single slave and returns the raw measurement block.
type MeterReader interface {
	ReadRegisters(slave uint8) ([]uint16, error)
}

func (c SerialConfig) withDefaults() SerialConfig {
	if c.BaudRate == 0 {
		c.BaudRate = DEFAULT_BAUD_RATE
	}
	if c.Timeout <= 0 {
		c.Timeout = DEFAULT_READ_TIMEOUT
	}
	return c
}

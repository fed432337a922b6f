package pzem_modbus

import "fmt"

// DecodeRegisters converts the 9-register measurement block into a Measurement.
// 32-bit quantities are sent low word first.
func DecodeRegisters(registers []uint16) (*Measurement, error) {
	if len(registers) < int(MEASUREMENT_REGISTER_COUNT) {
		return nil, fmt.Errorf("%w: got %d registers, want %d", ErrMalformedBlock, len(registers), MEASUREMENT_REGISTER_COUNT)
	}
	return &Measurement{
		Voltage:     float64(registers[0]) / 10,
		Current:     float64(lowHighUint32(registers[1], registers[2])) / 1000,
		Power:       float64(lowHighUint32(registers[3], registers[4])) / 10,
		Energy:      lowHighUint32(registers[5], registers[6]),
		Frequency:   float64(registers[7]) / 10,
		PowerFactor: float64(registers[8]) / 100,
	}, nil
}

func lowHighUint32(low uint16, high uint16) uint32 {
	return uint32(low) | uint32(high)<<16
}

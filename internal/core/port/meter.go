package port

// MeterReader performs one register block read against a meter on the bus.
type MeterReader interface {
	ReadRegisters(slave uint8) ([]uint16, error)
}

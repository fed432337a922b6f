package pzem_modbus

import (
	"errors"
	"fmt"
)

var ErrMalformedBlock = errors.New("malformed register block")

// TransportError wraps any failure talking to one slave: open, timeout,
// framing, CRC, modbus exception or a short response.
type TransportError struct {
	Slave uint8
	Op    string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("modbus slave %d: %s: %v", e.Slave, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func transportError(slave uint8, op string, err error) error {
	return &TransportError{Slave: slave, Op: op, Err: err}
}

var ErrShortResponse = errors.New("short response")

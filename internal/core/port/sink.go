package port

import "github.com/CreasolTech/pzem2mqtt/internal/core/domain"

// SensorSink is the host side of the sensor units: it knows which units
// exist, creates new ones and receives their values.
type SensorSink interface {
	Exists(unit int) bool
	Create(unit int, descriptor domain.SensorDescriptor, name string) error
	Update(unit int, values ...string) error
}

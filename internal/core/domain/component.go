package domain

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericSensor struct {
	Device            Device
	Id                string
	StateId           string // sensor whose state topic is read, defaults to Id
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, total_increasing (for acc energy)
	DeviceClass       string // voltage, current, power, energy, frequency, power_factor
	EntityCategory    string // diagnostic, config, nil
	ValueTemplate     string
	EnabledByDefault  *bool
	Icon              string
}

func (s GenericSensor) StateSensorId() string {
	if s.StateId != "" {
		return s.StateId
	}
	return s.Id
}

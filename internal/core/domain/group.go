package domain

const (
	// number of sensor units reserved per meter
	GROUP_STRIDE = 5
)

// SensorGroup is the block of units owned by the meter at Position in the
// configured slave list. Units are BaseUnit+1 .. BaseUnit+GROUP_STRIDE.
type SensorGroup struct {
	Slave    uint8
	Position int
	BaseUnit int
}

// SlaveGroups maps the ordered slave list to sensor groups. The mapping only
// depends on list order, so it is stable across restarts.
func SlaveGroups(slaves []uint8) []SensorGroup {
	groups := make([]SensorGroup, 0, len(slaves))
	for k, slave := range slaves {
		groups = append(groups, SensorGroup{
			Slave:    slave,
			Position: k,
			BaseUnit: k * GROUP_STRIDE,
		})
	}
	return groups
}

func (g SensorGroup) Unit(kind SensorKind) int {
	return g.BaseUnit + int(kind)
}

func (g SensorGroup) Units() []int {
	units := make([]int, 0, GROUP_STRIDE)
	for _, kind := range SensorKinds {
		units = append(units, g.Unit(kind))
	}
	return units
}

// GroupOfUnit returns the list position and kind that own unit.
func GroupOfUnit(unit int) (int, SensorKind, bool) {
	if unit < 1 {
		return 0, 0, false
	}
	return (unit - 1) / GROUP_STRIDE, SensorKind((unit-1)%GROUP_STRIDE + 1), true
}

package actor

import (
	"slices"
	"sync"

	"github.com/CreasolTech/pzem2mqtt/internal/core/domain"
)

// DiscoveryRegistry keeps the discovery sensors of every created unit.
// It is shared by the sensor sink and the MQTT actor and survives MQTT
// actor restarts, so a new connection can announce all units again.
type DiscoveryRegistry struct {
	mu    sync.RWMutex
	units map[int][]domain.GenericSensor
}

func NewDiscoveryRegistry() *DiscoveryRegistry {
	return &DiscoveryRegistry{units: map[int][]domain.GenericSensor{}}
}

func (r *DiscoveryRegistry) Register(unit int, sensors []domain.GenericSensor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units[unit] = slices.Clone(sensors)
}

// Sensors returns the registered sensors ordered by unit. A nil registry
// has none.
func (r *DiscoveryRegistry) Sensors() []domain.GenericSensor {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	units := make([]int, 0, len(r.units))
	for unit := range r.units {
		units = append(units, unit)
	}
	slices.Sort(units)
	var sensors []domain.GenericSensor
	for _, unit := range units {
		sensors = append(sensors, r.units[unit]...)
	}
	return sensors
}

package actor

import (
	"fmt"
	"sync"

	"github.com/CreasolTech/pzem2mqtt/internal/core/domain"
	"github.com/CreasolTech/pzem2mqtt/internal/core/port"

	"github.com/asynkron/protoactor-go/actor"
)

// ActorSensorSink exposes the sensor units on MQTT through the MQTTActor.
// Created units are tracked in memory. Creating a unit registers its
// discovery sensors and announces them right away; the MQTT actor announces
// the registry again on every new connection.
type ActorSensorSink struct {
	mu        sync.Mutex
	sender    actor.SenderContext
	mqttActor *actor.PID
	bridge    domain.Device
	discovery *DiscoveryRegistry
	units     map[int]domain.SensorDescriptor
}

func NewActorSensorSink(sender actor.SenderContext, mqttActor *actor.PID, bridge domain.Device, discovery *DiscoveryRegistry) *ActorSensorSink {
	if discovery == nil {
		discovery = NewDiscoveryRegistry()
	}
	return &ActorSensorSink{
		sender:    sender,
		mqttActor: mqttActor,
		bridge:    bridge,
		discovery: discovery,
		units:     map[int]domain.SensorDescriptor{},
	}
}

func (s *ActorSensorSink) Exists(unit int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.units[unit]
	return ok
}

func (s *ActorSensorSink) Create(unit int, descriptor domain.SensorDescriptor, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	meter := domain.MeterDevice(s.bridge, descriptor.Position, descriptor.Slave)
	sensors := domain.UnitSensors(meter, unit, descriptor.Kind, name)
	if len(sensors) == 0 {
		return fmt.Errorf("unit %d: unknown sensor kind %d", unit, descriptor.Kind)
	}
	s.units[unit] = descriptor
	s.discovery.Register(unit, sensors)
	s.sender.Send(s.mqttActor, domain.PublishDiscoveryRequest{Sensors: sensors})
	return nil
}

func (s *ActorSensorSink) Update(unit int, values ...string) error {
	s.mu.Lock()
	descriptor, ok := s.units[unit]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unit %d does not exist", unit)
	}
	event, err := unitUpdateEvent(unit, descriptor.Kind, values)
	if err != nil {
		return err
	}
	s.sender.Send(s.mqttActor, domain.PublishSensorUpdateRequest{Event: event})
	return nil
}

func unitUpdateEvent(unit int, kind domain.SensorKind, values []string) (domain.SensorUpdateEvent, error) {
	id := domain.SensorUpdateEventMixIn{Id: domain.UnitSensorId(unit)}
	if kind == domain.SENSOR_KIND_POWER_ENERGY {
		if len(values) != 2 {
			return nil, fmt.Errorf("unit %d: expected power and energy, got %d values", unit, len(values))
		}
		return domain.JSONSensorUpdateEvent{
			SensorUpdateEventMixIn: id,
			Values: map[string]string{
				domain.FIELD_POWER:  values[0],
				domain.FIELD_ENERGY: values[1],
			},
		}, nil
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unit %d: expected one value, got %d", unit, len(values))
	}
	return domain.TextSensorUpdateEvent{
		SensorUpdateEventMixIn: id,
		Value:                  values[0],
	}, nil
}

var _ port.SensorSink = (*ActorSensorSink)(nil)

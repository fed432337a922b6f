package domain

import "fmt"

type SensorUpdateEventMixIn struct {
	Id string
}

type SensorUpdateEvent interface {
	SensorUpdateEvent() string
	SensorId() string
}

func (e SensorUpdateEventMixIn) SensorUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

type TextSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value string
}

// JSONSensorUpdateEvent publishes several fields in a single message.
type JSONSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Values map[string]string
}

type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

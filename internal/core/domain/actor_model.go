package domain

const (
	ACTOR_ID_MASTER = "master"
	ACTOR_ID_MODBUS = "modbus"
	ACTOR_ID_POLLER = "poller"
	ACTOR_ID_MQTT   = "mqtt"
)

type ReadMeterRequest struct {
	ActorRequestMixIn
	Slave uint8
}

type ReadMeterResponse struct {
	ActorResponseMixIn
	Slave     uint8
	Registers []uint16
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
}

type SensorCommandRequest struct {
	ActorRequestMixIn
	SensorId string
	Payload  string
}

type GetPollStatusRequest struct {
	ActorRequestMixIn
}

type GetPollStatusResponse struct {
	ActorResponseMixIn
	Cycles     uint64
	LastReport *CycleReport
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

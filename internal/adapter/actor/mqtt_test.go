package actor

import (
	"errors"
	"testing"
	"time"

	"github.com/CreasolTech/pzem2mqtt/internal/core/domain"
	"github.com/CreasolTech/pzem2mqtt/internal/mqtt"
	"github.com/CreasolTech/pzem2mqtt/internal/util"
	"github.com/CreasolTech/pzem2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, nil, logger) })
	pid := context.Spawn(props)

	msg := domain.ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.True(t, resp.Healthy)

	result, err = context.RequestFuture(pid, domain.PublishSensorUpdateRequest{
		Event: domain.JSONSensorUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.UnitSensorId(1)},
			Values:                 map[string]string{"power": "500.0", "energy": "120000"},
		},
	}, 2*time.Second).Result()
	require.NoError(t, err)
	_, ok = result.(domain.PublishSensorUpdateResponse)
	assert.True(t, ok)

	context.Stop(pid)

	as.Shutdown()
}

func TestJSONPayload(t *testing.T) {

	payload, err := jsonPayload(map[string]string{"power": "500.0", "energy": "120000"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"power": 500.0, "energy": 120000}`, payload)

	_, err = jsonPayload(map[string]string{"power": "n/a"})
	assert.Error(t, err)
}

func TestEvent2MQTTMessage(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	act := NewTestMQTTActor(&cfg, nil, zap.NewNop())
	act.client = mqtt.CreateMQTTClient(&cfg, mqtt.OptsFromConfig(&cfg), nil, nil)

	msg, err := act.event2MQTTMessage(domain.TextSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.UnitSensorId(2)},
		Value:                  "230.0",
	})
	assert.NoError(err)
	assert.Equal("pzem/sensor/unit_2/state", msg.topic)
	assert.Equal("230.0", msg.message)

	msg, err = act.event2MQTTMessage(domain.BridgeStateUpdateEvent{Value: false})
	assert.NoError(err)
	assert.Equal("pzem/bridge/state", msg.topic)
	assert.Equal("offline", msg.message)
	assert.True(msg.retain)
}

func TestMQTTActorAnnouncesUnitsAfterRestart(t *testing.T) {

	require := require.New(t)

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	discovery := NewDiscoveryRegistry()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewTestMQTTActor(&cfg, discovery, logger)
	})
	pid := context.Spawn(props)

	healthState := func() string {
		res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
		require.NoError(err)
		return res.(domain.ActorHealthResponse).State
	}

	// only the bridge is known on the first connection
	require.Equal("idle published=0 announced=1", healthState())

	sink := NewActorSensorSink(context, pid, domain.BridgeDevice(cfg.MQTT.BaseTopic), discovery)
	require.NoError(sink.Create(1, domain.SensorDescriptor{Kind: domain.SENSOR_KIND_POWER_ENERGY, Slave: 2}, "Power/Energy"))
	require.NoError(sink.Create(2, domain.SensorDescriptor{Kind: domain.SENSOR_KIND_VOLTAGE, Slave: 2}, "Voltage"))
	require.NoError(sink.Create(3, domain.SensorDescriptor{Kind: domain.SENSOR_KIND_CURRENT, Slave: 2}, "Current"))
	require.NoError(sink.Update(2, "230.0"))
	require.Equal("idle published=1 announced=5", healthState())

	// the broker goes away, the replacement actor starts from scratch
	context.Send(pid, MQTTConnectionLost{Error: errors.New("broker gone")})
	require.Eventually(func() bool {
		res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 200*time.Millisecond).Result()
		return err == nil && res.(domain.ActorHealthResponse).State == "idle published=0 announced=5"
	}, 5*time.Second, 50*time.Millisecond)
	require.True(sink.Exists(1))

	context.Stop(pid)

	as.Shutdown()
}

func TestContinueWith(t *testing.T) {

	var got []any
	notify := func(msg any) { got = append(got, msg) }

	continueWith(notify, MQTTSubscribed{})(nil)
	continueWith(notify, MQTTSubscribed{})(errors.New("not authorized"))

	require.Len(t, got, 2)
	assert.IsType(t, MQTTSubscribed{}, got[0])
	lost, ok := got[1].(MQTTConnectionLost)
	require.True(t, ok)
	assert.EqualError(t, lost.Error, "not authorized")
}

func TestDiscoverySensorsIncludeRegisteredUnits(t *testing.T) {

	cfg := util.LoadTestConfig()
	discovery := NewDiscoveryRegistry()
	meter := domain.MeterDevice(domain.BridgeDevice(cfg.MQTT.BaseTopic), 0, 2)
	discovery.Register(2, domain.UnitSensors(meter, 2, domain.SENSOR_KIND_VOLTAGE, "Voltage"))

	act := NewMQTTActor(&cfg, discovery, zap.NewNop())
	sensors := act.discoverySensors()

	require.Len(t, sensors, 2)
	assert.Equal(t, domain.SENSOR_ID_BRIDGE_STATE, sensors[0].Id)
	assert.Equal(t, "unit_2", sensors[1].Id)
}

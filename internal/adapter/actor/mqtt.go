package actor

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/CreasolTech/pzem2mqtt/internal/config"
	"github.com/CreasolTech/pzem2mqtt/internal/core/domain"
	"github.com/CreasolTech/pzem2mqtt/internal/mqtt"
	"github.com/CreasolTech/pzem2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MQTTActor owns the broker connection. It announces the bridge and every
// registered unit each time it connects, publishes sensor states and
// forwards sensor commands to its parent.
type MQTTActor struct {
	config    *config.Config
	behavior  actor.Behavior
	stash     *actorutil.Stash
	client    *mqtt.MQTTClient
	discovery *DiscoveryRegistry
	published uint64
	announced uint64
	logger    *zap.Logger
}

type MQTTConnected struct {
}

type MQTTSubscribed struct {
}

type MQTTConnectionLost struct {
	Error error
}

type publishResult struct {
	ReplyTo *actor.PID
	Error   error
}

type ParsedCommand struct {
	Command *mqtt.ParsedMQTTCommand
}

type rawMessage struct {
	topic   string
	message string
	retain  bool
}

func NewMQTTActor(config *config.Config, discovery *DiscoveryRegistry, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:    config,
		behavior:  actor.NewBehavior(),
		stash:     &actorutil.Stash{},
		discovery: discovery,
		logger:    actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MQTTActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MQTTActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("mqtt@starting started")

		notify := mailbox(ctx)
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), nil, func(_ pahomqtt.Client, err error) {
			notify(MQTTConnectionLost{Error: err})
		})
		state.client.Connect(continueWith(notify, MQTTConnected{}), 10*time.Second)

	case MQTTConnected:
		state.logger.Debug("mqtt@starting connected")

		state.publishBridgeState(true)

		notify := mailbox(ctx)
		client := state.client
		client.SubscribeToCommandTopic(func(_ pahomqtt.Client, m pahomqtt.Message) {
			if cmd, err := client.ParseMQTTCommand(m); err == nil {
				notify(ParsedCommand{Command: cmd})
			}
		}, continueWith(notify, MQTTSubscribed{}), 1*time.Second)
	case MQTTSubscribed:
		// init completed, transition to default state
		state.logger.Debug("mqtt@starting subscribed")
		// a previous connection may have dropped queued announcements
		if err := state.PublishHomeAssistantDiscovery(state.discoverySensors()); err != nil {
			state.logger.Error("mqtt@starting discovery error", zap.Error(err))
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case MQTTConnectionLost:
		// if connection lost, stop actor and let supervisor decide
		state.logger.Error("mqtt@starting connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Restarting:
		state.stop()
	default:
		state.logger.Debug("mqtt@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@default ActorHealthRequest")
		// respond health check request
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   state.stateSummary(),
		})
	case ParsedCommand:
		// route command to parent
		state.logger.Debug("mqtt@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			ctx.Send(ctx.Parent(), domain.SensorCommandRequest{
				SensorId: msg.Command.DeviceId,
				Payload:  msg.Command.Payload,
			})
		}
	case domain.PublishSensorUpdateRequest:
		state.logger.Debug("mqtt@default PublishSensorUpdateRequest", zap.String("type", fmt.Sprintf("%T", msg.Event)))
		state.publishSensorValue(ctx, msg.Event, msg.Retain, actorutil.ForRequest(msg).ReplyTo(ctx))
	case domain.PublishDiscoveryRequest:
		state.logger.Debug("mqtt@default PublishHADiscovery")
		err := state.PublishHomeAssistantDiscovery(msg.Sensors)
		if err != nil {
			state.logger.Error("mqtt@default PublishHADiscovery error", zap.Error(err))
		}
	case MQTTConnectionLost:
		// if connection lost, stop actor and let supervisor decide
		state.logger.Error("mqtt@default connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	default:
		state.logger.Debug("mqtt@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// mailbox returns a function that delivers messages to the actor from
// paho callback goroutines.
func mailbox(ctx actor.Context) func(any) {
	self, root := ctx.Self(), ctx.ActorSystem().Root
	return func(msg any) {
		root.Send(self, msg)
	}
}

// continueWith delivers next on success and a connection loss otherwise.
func continueWith(notify func(any), next any) func(error) {
	return func(err error) {
		if err != nil {
			notify(MQTTConnectionLost{Error: err})
			return
		}
		notify(next)
	}
}

func (state *MQTTActor) event2MQTTMessage(event any) (*rawMessage, error) {
	switch msg := event.(type) {
	case domain.TextSensorUpdateEvent:
		return &rawMessage{
			topic:   state.client.SensorStateTopic(msg.Id),
			message: msg.Value,
		}, nil
	case domain.JSONSensorUpdateEvent:
		payload, err := jsonPayload(msg.Values)
		if err != nil {
			return nil, err
		}
		return &rawMessage{
			topic:   state.client.SensorStateTopic(msg.Id),
			message: payload,
		}, nil
	case domain.BridgeStateUpdateEvent:
		var stringMessage string
		if msg.Value {
			stringMessage = mqtt.MQTT_PAYLOAD_ONLINE
		} else {
			stringMessage = mqtt.MQTT_PAYLOAD_OFFLINE
		}
		return &rawMessage{
			topic:   state.client.BridgeStateTopic(),
			message: stringMessage,
			retain:  true,
		}, nil
	default:
		return nil, nil
	}
}

// jsonPayload encodes numeric fields as JSON numbers.
func jsonPayload(values map[string]string) (string, error) {
	fields := make(map[string]json.Number, len(values))
	for k, v := range values {
		fields[k] = json.Number(v)
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func (state *MQTTActor) publishSensorValue(ctx actor.Context, event domain.SensorUpdateEvent, retain bool, replyTo *actor.PID) {
	msg, err := state.event2MQTTMessage(event)
	if err != nil || msg == nil {
		if err != nil {
			state.logger.Error("mqtt@publish invalid sensor event", zap.String("sensor", event.SensorId()), zap.Error(err))
		}
		if replyTo != nil {
			ctx.Send(replyTo, domain.PublishSensorUpdateResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			})
		}
		return
	}
	state.logger.Sugar().Debugf("mqtt@publish: sensor publish %s => %s", msg.topic, msg.message)
	notify := mailbox(ctx)
	state.client.Publish(msg.topic, msg.message, 1, msg.retain || retain, func(err error) {
		notify(publishResult{ReplyTo: replyTo, Error: err})
	}, 5*time.Second)
	state.behavior.BecomeStacked(state.EventPublishResultReceive)
}

func (state *MQTTActor) EventPublishResultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case publishResult:
		// log error and return to default state
		if msg.Error != nil {
			state.logger.Error("mqtt@publishing could not publish a message", zap.Error(msg.Error))
		} else {
			state.published++
		}
		if msg.ReplyTo != nil {
			ctx.Send(msg.ReplyTo, domain.PublishSensorUpdateResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: msg.Error,
				},
			})
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashOldest(ctx)
	case MQTTConnectionLost:
		state.logger.Error("mqtt@publishing connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	default:
		state.logger.Debug("mqtt@publishing stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) PublishHomeAssistantDiscovery(sensors []domain.GenericSensor) error {
	if !state.config.MQTT.HADiscoveryEnable {
		return nil
	}
	for _, sensor := range sensors {
		payload, err := json.Marshal(mqtt.GenericSensorToHADiscoveryMessage(state.client, sensor))
		if err != nil {
			return err
		}
		topic := mqtt.HADiscoverySensorTopic(state.client.HADiscoveryTopic(), sensor)
		state.client.Publish(topic, payload, 0, true, func(err error) {
			if err != nil {
				state.logger.Warn("mqtt@discovery publish failed", zap.String("topic", topic), zap.Error(err))
			}
		}, 1*time.Second)
		state.announced++
	}
	return nil
}

// discoverySensors lists the bridge entity followed by every registered unit.
func (state *MQTTActor) discoverySensors() []domain.GenericSensor {
	sensors := domain.BridgeSensors(domain.BridgeDevice(state.config.MQTT.BaseTopic))
	return append(sensors, state.discovery.Sensors()...)
}

func (state *MQTTActor) stateSummary() string {
	return fmt.Sprintf("idle published=%d announced=%d", state.published, state.announced)
}

func (state *MQTTActor) publishBridgeState(online bool) {
	msg, _ := state.event2MQTTMessage(domain.BridgeStateUpdateEvent{Value: online})
	state.client.Publish(msg.topic, msg.message, 0, msg.retain, func(err error) {
		if err != nil {
			state.logger.Warn("mqtt@bridge state publish failed", zap.Bool("online", online), zap.Error(err))
		}
	}, 500*time.Millisecond)
}

func (state *MQTTActor) stop() {
	state.logger.Debug("mqtt: disconnect")
	if state.client != nil {
		state.publishBridgeState(false)
		state.client.Disconnect(500 * time.Millisecond)
	}
}

// Dummy actor, never connects. Announcements are counted instead of published.
func NewTestMQTTActor(config *config.Config, discovery *DiscoveryRegistry, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:    config,
		behavior:  actor.NewBehavior(),
		stash:     &actorutil.Stash{},
		discovery: discovery,
		logger:    actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
	act.behavior.Become(act.DummyReceive)
	return act
}

func (state *MQTTActor) DummyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), nil, nil)
		state.announced += uint64(len(state.discoverySensors()))
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@dummy ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   state.stateSummary(),
		})
	case domain.PublishSensorUpdateRequest:
		if _, err := state.event2MQTTMessage(msg.Event); err == nil {
			state.published++
		}
		if msg.ReplyToRef != nil || ctx.Sender() != nil {
			actorutil.ForRequest(msg).Respond(ctx, domain.PublishSensorUpdateResponse{})
		}
	case domain.PublishDiscoveryRequest:
		state.logger.Debug("mqtt@dummy PublishHADiscovery", zap.Int("sensors", len(msg.Sensors)))
		state.announced += uint64(len(msg.Sensors))
	case MQTTConnectionLost:
		state.logger.Error("mqtt@dummy connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	}
}

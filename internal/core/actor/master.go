package actor

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	adactor "github.com/CreasolTech/pzem2mqtt/internal/adapter/actor"
	"github.com/CreasolTech/pzem2mqtt/internal/config"
	"github.com/CreasolTech/pzem2mqtt/internal/core/domain"
	"github.com/CreasolTech/pzem2mqtt/internal/core/port"
	. "github.com/CreasolTech/pzem2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	METER_REQUEST_TIMEOUT = 3 * time.Second
	CHILD_HEALTH_TIMEOUT  = 500 * time.Millisecond
	HEALTH_CHECK_TIMEOUT  = 1 * time.Second
)

// MQTTActorProvider builds the MQTT actor. The registry outlives the actor,
// so every new connection announces all units created so far.
type MQTTActorProvider func(discovery *adactor.DiscoveryRegistry) *adactor.MQTTActor

type ModbusActorProvider func() *adactor.ModbusActor

// PollerActorProvider builds the poller once the modbus and mqtt actors are up.
type PollerActorProvider func(reader port.MeterReader, sink port.SensorSink) *PollerActor

// MasterOfPuppetsActor owns the modbus, mqtt and poller actors and
// aggregates their health.
type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck  healthCheckResult
	discovery           *adactor.DiscoveryRegistry
	modbusActor         *actor.PID
	mqttActor           *actor.PID
	pollerActor         *actor.PID
	modbusActorProvider ModbusActorProvider
	mqttActorProvider   MQTTActorProvider
	pollerActorProvider PollerActorProvider
	logger              *zap.Logger
}

type healthCheckResult struct {
	pending   map[string]bool
	unhealthy []string
	respondTo *actor.PID
}

func NewMasterOfPuppetsActor(config config.Config, modbusActorProvider ModbusActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:              config,
		behavior:            actor.NewBehavior(),
		stash:               &Stash{},
		discovery:           adactor.NewDiscoveryRegistry(),
		logger:              ActorLogger(domain.ACTOR_ID_MASTER, logger),
		modbusActorProvider: modbusActorProvider,
		mqttActorProvider:   mqttActorProvider,
	}
	act.pollerActorProvider = func(reader port.MeterReader, sink port.SensorSink) *PollerActor {
		return NewPollerActor(&act.config, reader, sink, logger)
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		// the bus and the broker may be down at boot, back off between restarts
		state.modbusActor = state.spawnChild(ctx, domain.ACTOR_ID_MODBUS, func() actor.Actor {
			return state.modbusActorProvider()
		}, backoffSupervisor())
		state.mqttActor = state.spawnChild(ctx, domain.ACTOR_ID_MQTT, func() actor.Actor {
			return state.mqttActorProvider(state.discovery)
		}, backoffSupervisor())

		root := ctx.ActorSystem().Root
		reader := adactor.NewActorMeterReader(root, state.modbusActor, METER_REQUEST_TIMEOUT)
		sink := adactor.NewActorSensorSink(root, state.mqttActor, domain.BridgeDevice(state.config.MQTT.BaseTopic), state.discovery)
		state.pollerActor = state.spawnChild(ctx, domain.ACTOR_ID_POLLER, func() actor.Actor {
			return state.pollerActorProvider(reader, sink)
		}, state.restartSupervisor())

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		children := map[string]*actor.PID{
			domain.ACTOR_ID_MODBUS: state.modbusActor,
			domain.ACTOR_ID_MQTT:   state.mqttActor,
			domain.ACTOR_ID_POLLER: state.pollerActor,
		}
		state.currentHealthCheck = newHealthCheck(ctx.Sender(), children)
		for id, pid := range children {
			state.requestHealth(ctx, id, pid)
		}

		ctx.SetReceiveTimeout(HEALTH_CHECK_TIMEOUT)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.GetPollStatusRequest:
		// forward to poller, it answers the original sender
		ctx.Forward(state.pollerActor)
	case domain.SensorCommandRequest:
		state.logger.Debug("master@default SensorCommandRequest", zap.String("sensor", msg.SensorId))
		ctx.Send(state.pollerActor, msg)
	case *actor.Terminated:
		// if some actor fails on boot, terminate
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_MODBUS) {
			state.logger.Error("master@default modbus error")
			panic(errors.New("modbus terminated"))
		}
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// children that did not answer are reported unhealthy
		state.finishHealthCheck(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id),
			zap.Bool("healthy", msg.Healthy), zap.String("state", msg.State))
		if state.currentHealthCheck.record(msg) {
			state.finishHealthCheck(ctx)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) requestHealth(ctx actor.Context, id string, pid *actor.PID) {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, CHILD_HEALTH_TIMEOUT), func(err error) any {
		return domain.ActorHealthResponse{
			Id:      id,
			Healthy: false,
			State:   err.Error(),
		}
	})
}

func (state *MasterOfPuppetsActor) finishHealthCheck(ctx actor.Context) {
	resp := state.currentHealthCheck.response()
	if !resp.Healthy {
		state.logger.Warn("master@healthcheck unhealthy", zap.String("children", resp.State))
	}
	if state.currentHealthCheck.respondTo != nil {
		ctx.Send(state.currentHealthCheck.respondTo, resp)
	}
	ctx.CancelReceiveTimeout()
	state.behavior.UnbecomeStacked()
	state.stash.UnstashAll(ctx)
}

func (state *MasterOfPuppetsActor) spawnChild(ctx actor.Context, id string, producer actor.Producer, supervisor actor.SupervisorStrategy) *actor.PID {
	pid, err := ctx.SpawnNamed(actor.PropsFromProducer(producer, actor.WithSupervisor(supervisor)), id)
	if err != nil {
		panic(fmt.Errorf("spawn %s: %w", id, err))
	}
	return pid
}

func (state *MasterOfPuppetsActor) restartSupervisor() actor.SupervisorStrategy {
	decider := func(reason interface{}) actor.Directive {
		state.logger.Warn("master@supervisor restarting child", zap.Any("reason", reason))
		return actor.RestartDirective
	}
	return actor.NewOneForOneStrategy(1, 10*time.Second, decider)
}

func backoffSupervisor() actor.SupervisorStrategy {
	return actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)
}

func newHealthCheck(respondTo *actor.PID, children map[string]*actor.PID) healthCheckResult {
	pending := make(map[string]bool, len(children))
	for id := range children {
		pending[id] = true
	}
	return healthCheckResult{
		pending:   pending,
		respondTo: respondTo,
	}
}

// record stores one child answer and reports whether all children answered.
func (state *healthCheckResult) record(resp domain.ActorHealthResponse) bool {
	if !state.pending[resp.Id] {
		return len(state.pending) == 0
	}
	delete(state.pending, resp.Id)
	if !resp.Healthy {
		state.unhealthy = append(state.unhealthy, resp.Id)
	}
	return len(state.pending) == 0
}

func (state *healthCheckResult) response() domain.ActorHealthResponse {
	unhealthy := append([]string(nil), state.unhealthy...)
	for id := range state.pending {
		unhealthy = append(unhealthy, id)
	}
	sort.Strings(unhealthy)
	return domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: len(unhealthy) == 0,
		State:   strings.Join(unhealthy, ","),
	}
}

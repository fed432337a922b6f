package actor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/CreasolTech/pzem2mqtt/internal/config"
	"github.com/CreasolTech/pzem2mqtt/internal/core/domain"
	"github.com/CreasolTech/pzem2mqtt/internal/core/port"
	"github.com/CreasolTech/pzem2mqtt/internal/core/service"
	. "github.com/CreasolTech/pzem2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// PollerActor drives the poll cycles. A cycle runs off the actor goroutine
// so health and status requests are answered while meters are read. The
// next tick is scheduled only after a cycle ends, so cycles never overlap.
type PollerActor struct {
	behavior   actor.Behavior
	stash      *Stash
	scheduler  *scheduler.TimerScheduler
	cancelTick scheduler.CancelFunc

	config     *config.Config
	reader     port.MeterReader
	sink       port.SensorSink
	controller *service.PollingController
	cycles     uint64
	lastReport *domain.CycleReport

	logger *zap.Logger
}

type pollTick struct {
}

type cycleDone struct {
	report domain.CycleReport
	err    error
}

func NewPollerActor(config *config.Config, reader port.MeterReader, sink port.SensorSink, logger *zap.Logger) *PollerActor {
	act := &PollerActor{
		config:   config,
		reader:   reader,
		sink:     sink,
		behavior: actor.NewBehavior(),
		stash:    &Stash{},
		logger:   ActorLogger(domain.ACTOR_ID_POLLER, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *PollerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *PollerActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("poller@starting started")

		slaves, err := config.ParseSlaveList(state.config.MonitorConfig.Slaves)
		if err != nil {
			panic(err)
		}
		if !domain.SupportedLanguage(state.config.Language) {
			state.logger.Warn("poller@starting unsupported language, using default",
				zap.String("language", state.config.Language), zap.String("default", domain.DEFAULT_LANGUAGE))
		}
		controller, err := service.NewPollingController(slaves, state.reader, state.sink,
			domain.NewSensorNames(state.config.Language), state.logger, service.WithDebug(state.config.Debug))
		if err != nil {
			panic(err)
		}
		if err := controller.Setup(); err != nil {
			panic(err)
		}
		state.controller = controller

		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.cancelTick = state.scheduler.RequestOnce(state.config.MonitorConfig.PollInterval(), ctx.Self(), pollTick{})

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.stopTicking()
	default:
		state.logger.Debug("poller@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PollerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("poller@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_POLLER,
			Healthy: true,
			State:   state.controller.State().String(),
		})
	case pollTick:
		state.logger.Debug("poller@default tick")
		state.startCycle(ctx)
	case cycleDone:
		if msg.err != nil {
			// let the supervisor rebuild the controller
			state.logger.Error("poller@default cycle aborted", zap.Error(msg.err))
			panic(msg.err)
		}
		state.cycles++
		state.lastReport = &msg.report
		state.logger.Debug("poller@default cycle done", zap.Int("succeeded", msg.report.Succeeded()),
			zap.Int("failed", msg.report.Failed()), zap.Duration("elapsed", msg.report.Duration))

		// schedule next tick
		state.cancelTick = state.scheduler.RequestOnce(state.config.MonitorConfig.PollInterval(), ctx.Self(), pollTick{})
	case domain.GetPollStatusRequest:
		state.logger.Debug("poller@default: GetPollStatusRequest")
		ForRequest(msg).Respond(ctx, domain.GetPollStatusResponse{
			Cycles:     state.cycles,
			LastReport: state.lastReport,
		})
	case domain.SensorCommandRequest:
		state.logger.Debug("poller@default: SensorCommandRequest", zap.String("sensor", msg.SensorId))
		unit, ok := unitFromSensorId(msg.SensorId)
		if !ok {
			state.logger.Warn("poller@default command for unknown sensor", zap.String("sensor", msg.SensorId))
			return
		}
		state.controller.Command(unit, "set", msg.Payload)
	case *actor.Restarting:
		state.stopTicking()
	case *actor.Stopping:
		state.stopTicking()
	default:
		state.logger.Debug("poller@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *PollerActor) startCycle(ctx actor.Context) {
	controller := state.controller
	NewBackgroundTask(ctx, func() (*cycleDone, error) {
		return &cycleDone{report: controller.Poll()}, nil
	}).Recover(func(err error) cycleDone {
		return cycleDone{err: err}
	}).GoPipeTo(ctx.Self())
}

// stopTicking cancels the pending tick, if any. The instance built by a
// restart schedules its own.
func (state *PollerActor) stopTicking() {
	if state.cancelTick != nil {
		state.cancelTick()
		state.cancelTick = nil
	}
}

func unitFromSensorId(sensorId string) (int, bool) {
	rest, found := strings.CutPrefix(sensorId, "unit_")
	if !found {
		return 0, false
	}
	unit, err := strconv.Atoi(rest)
	if err != nil || unit < 1 {
		return 0, false
	}
	return unit, true
}

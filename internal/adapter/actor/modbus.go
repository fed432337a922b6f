package actor

import (
	"fmt"
	"time"

	"github.com/CreasolTech/pzem2mqtt/internal/core/domain"
	"github.com/CreasolTech/pzem2mqtt/internal/util/actorutil"
	"github.com/CreasolTech/pzem2mqtt/pkg/pzem_modbus"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	MODBUS_READ_TIMEOUT = 2 * time.Second
)

// ModbusActor owns the serial bus. Reads are served one at a time.
type ModbusActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	reader   pzem_modbus.MeterReader
	reads    uint64
	failures uint64
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewModbusActor(reader pzem_modbus.MeterReader, logger *zap.Logger) *ModbusActor {
	act := &ModbusActor{
		reader:   reader,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_MODBUS, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *ModbusActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ModbusActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("modbus@default started")
	case domain.ActorHealthRequest:
		state.logger.Debug("modbus@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MODBUS,
			Healthy: state.reader != nil,
			State:   fmt.Sprintf("idle reads=%d failures=%d", state.reads, state.failures),
		})
	case domain.ReadMeterRequest:
		state.logger.Debug("modbus@default: ReadMeterRequest", zap.Uint8("slave", msg.Slave))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		slave := msg.Slave

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.ReadMeterResponse, error) {
			return state.readMeter(slave)
		}), mapTaskResult[domain.ReadMeterResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.ReadMeterResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
					Slave: slave,
				},
				replyTo: sender,
			}
		}).WithTimeout(MODBUS_READ_TIMEOUT).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	default:
		state.logger.Debug("modbus@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ModbusActor) WaitingModbus(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("modbus@WaitingModbus backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		state.reads++
		if resp, ok := msg.message.(domain.ReadMeterResponse); ok && resp.HasResponseError() {
			state.failures++
		}
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.stash.Stash(ctx, msg)
		state.logger.Debug("modbus@WaitingModbus stash", zap.String("type", fmt.Sprintf("%T", msg)), zap.Int("pending", state.stash.Len()))
	}
}

func (state *ModbusActor) readMeter(slave uint8) (*domain.ReadMeterResponse, error) {
	registers, err := state.reader.ReadRegisters(slave)
	if err != nil {
		state.logger.Debug("modbus@read failed", zap.Uint8("slave", slave), zap.Error(err))
		return nil, err
	}
	return &domain.ReadMeterResponse{
		Slave:     slave,
		Registers: registers,
	}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}

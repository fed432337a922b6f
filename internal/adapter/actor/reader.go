package actor

import (
	"errors"
	"time"

	"github.com/CreasolTech/pzem2mqtt/internal/core/domain"
	"github.com/CreasolTech/pzem2mqtt/internal/core/port"
	"github.com/CreasolTech/pzem2mqtt/pkg/pzem_modbus"

	"github.com/asynkron/protoactor-go/actor"
)

// ActorMeterReader reads meters through the ModbusActor. It blocks the
// caller until the actor answers or the timeout expires.
type ActorMeterReader struct {
	sender      actor.SenderContext
	modbusActor *actor.PID
	timeout     time.Duration
}

func NewActorMeterReader(sender actor.SenderContext, modbusActor *actor.PID, timeout time.Duration) *ActorMeterReader {
	return &ActorMeterReader{
		sender:      sender,
		modbusActor: modbusActor,
		timeout:     timeout,
	}
}

func (r *ActorMeterReader) ReadRegisters(slave uint8) ([]uint16, error) {
	res, err := r.sender.RequestFuture(r.modbusActor, domain.ReadMeterRequest{Slave: slave}, r.timeout).Result()
	if err != nil {
		return nil, &pzem_modbus.TransportError{Slave: slave, Op: "request", Err: err}
	}
	resp, ok := res.(domain.ReadMeterResponse)
	if !ok {
		return nil, &pzem_modbus.TransportError{Slave: slave, Op: "request", Err: errors.New("unexpected response")}
	}
	if resp.HasResponseError() {
		var transportErr *pzem_modbus.TransportError
		if errors.As(resp.ResponseError, &transportErr) {
			return nil, resp.ResponseError
		}
		return nil, &pzem_modbus.TransportError{Slave: slave, Op: "read", Err: resp.ResponseError}
	}
	return resp.Registers, nil
}

var _ port.MeterReader = (*ActorMeterReader)(nil)

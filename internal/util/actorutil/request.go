package actorutil

import (
	"github.com/CreasolTech/pzem2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
)

type forRequest struct {
	req domain.ActorRequest
}

type ExtendedRequest interface {
	Respond(ctx actor.Context, resp domain.ActorResponse)
	ReplyTo(ctx actor.Context) *actor.PID
}

func ForRequest(r domain.ActorRequest) ExtendedRequest {
	return forRequest{req: r}
}

// Respond answers the reply address of the request, or its sender.
func (r forRequest) Respond(ctx actor.Context, resp domain.ActorResponse) {
	if ref := r.req.ReplyTo(); ref != nil {
		ctx.Send(ref.PID(), resp)
		return
	}
	ctx.Respond(resp)
}

func (r forRequest) ReplyTo(ctx actor.Context) *actor.PID {
	if ref := r.req.ReplyTo(); ref != nil {
		return ref.PID()
	}
	return ctx.Sender()
}

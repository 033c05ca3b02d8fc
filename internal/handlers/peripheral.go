package handlers

import (
	"context"

	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

// genericHandler is the shape every peripheral handler in this package
// implements: try to handle req, return nil if the operation isn't one
// this handler owns (protocol.Generic).
type genericHandler interface {
	HandleGeneric(ctx context.Context, msg protocol.Message, req *protocol.Generic) *protocol.Generic
}

// Peripheral aggregates the remaining handlers behind the single
// KindGeneric dispatch table entry: it tries each registered
// genericHandler in turn and returns the first non-nil response. Every
// peripheral operation shares one wire message instead of one RPC method
// apiece, so nil means "not mine".
type Peripheral struct {
	handlers []genericHandler
}

// NewPeripheral builds the aggregator from the concrete peripheral handler
// instances wired up at startup (cmd/quantix-guest-agent).
func NewPeripheral(handlers ...genericHandler) *Peripheral {
	return &Peripheral{handlers: handlers}
}

// Handle implements dispatch.Handler for KindGeneric.
func (p *Peripheral) Handle(ctx context.Context, msg protocol.Message) protocol.Payload {
	req, ok := msg.Payload.(*protocol.Generic)
	if !ok {
		return &protocol.Generic{Error: "malformed peripheral request"}
	}

	for _, h := range p.handlers {
		if resp := h.HandleGeneric(ctx, msg, req); resp != nil {
			return resp
		}
	}

	return &protocol.Generic{
		Op:    req.Op,
		Error: "unsupported operation: " + string(req.Op),
	}
}

package handlers

import (
	"context"
	"time"

	"github.com/blang/semver/v4"

	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

// AgentVersion is the agent's own release version, compared against an
// update candidate by the AgentUpdate peripheral handler and
// echoed in every Pong.
var AgentVersion = semver.MustParse("1.0.0")

// Ping implements the Ping/Pong handler contract: no security
// checks, replies promptly so it is never blocked behind a long Execute.
type Ping struct {
	StartedAt time.Time
}

// Handle implements dispatch.Handler for KindPing.
func (h *Ping) Handle(_ context.Context, msg protocol.Message) protocol.Payload {
	req, ok := msg.Payload.(*protocol.Ping)
	if !ok {
		return &protocol.Pong{AgentVersion: AgentVersion.String()}
	}
	return &protocol.Pong{
		Sequence:       req.Sequence,
		AgentVersion:   AgentVersion.String(),
		HostUptimeSecs: uint64(time.Since(h.StartedAt).Seconds()),
	}
}

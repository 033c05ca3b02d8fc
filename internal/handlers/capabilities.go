package handlers

import (
	"context"
	"runtime"
	"strings"

	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

// Capabilities implements get_capabilities: reports the agent's
// version and which peripheral operations this build actually supports,
// so a host can gate feature use without a failed round trip.
type Capabilities struct {
	Operations []protocol.Operation
}

func (h *Capabilities) HandleGeneric(_ context.Context, msg protocol.Message, req *protocol.Generic) *protocol.Generic {
	if req.Op != protocol.OpGetCapabilities {
		return nil
	}

	names := make([]string, len(h.Operations))
	for i, op := range h.Operations {
		names[i] = string(op)
	}

	return &protocol.Generic{
		Op:      protocol.OpGetCapabilities,
		Success: true,
		Fields: map[string]string{
			"agent_version": AgentVersion.String(),
			"os":            runtime.GOOS,
			"arch":          runtime.GOARCH,
			"operations":    strings.Join(names, ","),
		},
	}
}

package handlers

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/quantix-kvm/guest-agent/internal/audit"
	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

// Update implements agent_update: the host proposes a target version,
// the agent reports whether it's already current. The actual binary
// replacement step is host-orchestrated; the agent only ever reports its
// own version, compared with compareVersion (version.go).
type Update struct {
	Audit *audit.Logger
	Log   *logrus.Entry
}

func (h *Update) HandleGeneric(_ context.Context, msg protocol.Message, req *protocol.Generic) *protocol.Generic {
	if req.Op != protocol.OpAgentUpdate {
		return nil
	}

	target := req.Fields["target_version"]
	if target == "" {
		return &protocol.Generic{Op: protocol.OpAgentUpdate, Error: "target_version is required"}
	}

	cmp, err := compareVersion(target)
	if err != nil {
		return &protocol.Generic{Op: protocol.OpAgentUpdate, Error: fmt.Sprintf("invalid target_version: %v", err)}
	}

	h.Audit.LogLifecycle(msg.MessageID, "agent_update", true)

	if cmp >= 0 {
		return &protocol.Generic{
			Op:      protocol.OpAgentUpdate,
			Success: true,
			Fields: map[string]string{
				"current_version": AgentVersion.String(),
				"action":          "none",
				"reason":          "already current",
			},
		}
	}

	return &protocol.Generic{
		Op:      protocol.OpAgentUpdate,
		Success: false,
		Error:   "self-update is not yet implemented; host must stage the new agent binary out of band",
		Fields: map[string]string{
			"current_version": AgentVersion.String(),
			"target_version":  target,
		},
	}
}

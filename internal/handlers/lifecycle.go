package handlers

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/quantix-kvm/guest-agent/internal/audit"
	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

// Lifecycle implements shutdown, reset_password, and configure_network.
// Platform command invocation is split into lifecycle_unix.go and
// lifecycle_windows.go the way execute.go splits privilege drop.
type Lifecycle struct {
	Audit *audit.Logger
	Log   *logrus.Entry
}

// HandleGeneric dispatches lifecycle-related Generic operations; wired
// into the Peripheral aggregator in peripheral.go.
func (h *Lifecycle) HandleGeneric(_ context.Context, msg protocol.Message, req *protocol.Generic) *protocol.Generic {
	switch req.Op {
	case protocol.OpShutdown:
		resp := shutdownSystem(req)
		h.Audit.LogLifecycle(msg.MessageID, "shutdown", resp.Success)
		return resp
	case protocol.OpResetPassword:
		resp := resetPassword(req)
		h.Audit.LogLifecycle(msg.MessageID, "reset_password", resp.Success)
		return resp
	case protocol.OpConfigureNetwork:
		resp := h.configureNetwork(req)
		h.Audit.LogLifecycle(msg.MessageID, "configure_network", resp.Success)
		return resp
	}
	return nil
}

func (h *Lifecycle) configureNetwork(req *protocol.Generic) *protocol.Generic {
	config := req.Fields["netplan_config"]
	applyNow := req.Fields["apply_now"] == "true"
	return configureNetwork(config, applyNow)
}

func shutdownType(t string) string {
	switch t {
	case "reboot":
		return "reboot"
	case "halt":
		return "halt"
	default:
		return "poweroff"
	}
}

func parseDelaySeconds(req *protocol.Generic) int {
	v, _ := strconv.Atoi(req.Fields["delay_seconds"])
	return v
}

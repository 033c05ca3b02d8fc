package handlers

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/quantix-kvm/guest-agent/internal/audit"
	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

// Process implements the list_processes/kill_process peripheral
// operations, reading the process table through procfs on Linux with a
// syscall-level kill path shared across every Unix target.
type Process struct {
	Audit *audit.Logger
	Log   *logrus.Entry
}

// HandleGeneric dispatches process-related Generic operations; wired into
// the Peripheral aggregator in peripheral.go.
func (h *Process) HandleGeneric(_ context.Context, msg protocol.Message, req *protocol.Generic) *protocol.Generic {
	switch req.Op {
	case protocol.OpListProcesses:
		return handleListProcesses(req)
	case protocol.OpKillProcess:
		resp := handleKillProcess(req)
		h.Audit.LogProcessOp(msg.MessageID, string(req.Op), pidField(req), resp.Success)
		return resp
	}
	return nil
}

func pidField(req *protocol.Generic) *int32 {
	v, err := strconv.Atoi(req.Fields["pid"])
	if err != nil {
		return nil
	}
	pid := int32(v)
	return &pid
}

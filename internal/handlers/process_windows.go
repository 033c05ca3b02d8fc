//go:build windows

package handlers

import (
	"fmt"
	"os"
	"strconv"

	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

func handleKillProcess(req *protocol.Generic) *protocol.Generic {
	pid, err := strconv.Atoi(req.Fields["pid"])
	if err != nil {
		return &protocol.Generic{Op: protocol.OpKillProcess, Error: "invalid pid"}
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return &protocol.Generic{Op: protocol.OpKillProcess, Error: fmt.Sprintf("process %d not found", pid)}
	}
	if err := proc.Kill(); err != nil {
		return &protocol.Generic{Op: protocol.OpKillProcess, Error: fmt.Sprintf("failed to kill process %d: %v", pid, err)}
	}
	return &protocol.Generic{Op: protocol.OpKillProcess, Success: true}
}

//go:build unix

package handlers

import (
	"fmt"
	"strconv"
	"syscall"

	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

func handleKillProcess(req *protocol.Generic) *protocol.Generic {
	pid, err := strconv.Atoi(req.Fields["pid"])
	if err != nil {
		return &protocol.Generic{Op: protocol.OpKillProcess, Error: "invalid pid"}
	}
	sigNum, _ := strconv.Atoi(req.Fields["signal"])
	sig := signalFromRequest(sigNum)

	if err := syscall.Kill(pid, sig); err != nil {
		if sig != syscall.SIGKILL {
			if err2 := syscall.Kill(pid, syscall.SIGKILL); err2 == nil {
				return &protocol.Generic{Op: protocol.OpKillProcess, Success: true}
			}
		}
		return &protocol.Generic{Op: protocol.OpKillProcess, Error: fmt.Sprintf("failed to kill process %d: %v", pid, err)}
	}
	return &protocol.Generic{Op: protocol.OpKillProcess, Success: true}
}

func signalFromRequest(signal int) syscall.Signal {
	switch signal {
	case 0, 15:
		return syscall.SIGTERM
	case 9:
		return syscall.SIGKILL
	case 1:
		return syscall.SIGHUP
	case 2:
		return syscall.SIGINT
	case 3:
		return syscall.SIGQUIT
	default:
		return syscall.SIGTERM
	}
}

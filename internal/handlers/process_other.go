//go:build !linux

package handlers

import "github.com/quantix-kvm/guest-agent/internal/protocol"

func handleListProcesses(req *protocol.Generic) *protocol.Generic {
	return &protocol.Generic{Op: protocol.OpListProcesses, Error: "process listing is not implemented on this platform"}
}

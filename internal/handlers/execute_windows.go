//go:build windows

package handlers

import (
	"fmt"
	"os/exec"

	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

// killProcessGroup has no POSIX process-group equivalent on Windows; it
// falls back to killing the process directly for both escalation steps.
func killProcessGroup(cmd *exec.Cmd, sig procSignal) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}

// setSessionAttrs is a no-op on Windows; process-tree termination is not
// wired here.
func setSessionAttrs(cmd *exec.Cmd) {}

// dropPrivileges: running as another user is not yet implemented on
// Windows.
func dropPrivileges(cmd *exec.Cmd, req *protocol.Execute, cache *groupCache) error {
	return fmt.Errorf("running as a different user is not yet implemented on Windows")
}

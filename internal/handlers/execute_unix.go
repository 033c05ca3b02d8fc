//go:build unix

package handlers

import (
	"os/exec"
	"syscall"

	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

// killProcessGroup signals the whole process group so shell-spawned
// children die along with the shell when the timeout escalation fires.
func killProcessGroup(cmd *exec.Cmd, sig procSignal) {
	if cmd.Process == nil {
		return
	}
	unixSig := syscall.SIGTERM
	if sig == sigKill {
		unixSig = syscall.SIGKILL
	}
	_ = syscall.Kill(-cmd.Process.Pid, unixSig)
}

// dropPrivileges resolves run_as_user/run_as_group and attaches a
// syscall.Credential to cmd's SysProcAttr. The Go runtime performs
// setgroups, then setgid, then setuid in exactly that order when starting
// the child, so no hand-rolled pre-exec hook is needed.
func dropPrivileges(cmd *exec.Cmd, req *protocol.Execute, cache *groupCache) error {
	uid, gid, groups, err := resolveCredential(req, cache)
	if err != nil {
		return err
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Credential: &syscall.Credential{
			Uid:         uid,
			Gid:         gid,
			Groups:      groups,
			NoSetGroups: len(groups) == 0 && !req.IncludeSupplementaryGroups,
		},
	}
	return nil
}

// setSessionAttrs places the child in its own process group so the timeout
// escalation can signal the whole tree, not just the immediate child.
func setSessionAttrs(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

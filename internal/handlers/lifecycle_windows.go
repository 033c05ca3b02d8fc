//go:build windows

package handlers

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

func shutdownSystem(req *protocol.Generic) *protocol.Generic {
	kind := shutdownType(req.Fields["type"])
	delay := parseDelaySeconds(req)
	message := req.Fields["message"]

	flag := map[string]string{"poweroff": "/s", "reboot": "/r", "halt": "/s"}[kind]
	args := []string{flag, "/t", fmt.Sprintf("%d", delay)}
	if message != "" {
		args = append(args, "/c", message)
	}

	var stderr bytes.Buffer
	cmd := exec.Command("shutdown", args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &protocol.Generic{Op: protocol.OpShutdown, Error: strings.TrimSpace(stderr.String())}
	}
	return &protocol.Generic{Op: protocol.OpShutdown, Success: true}
}

func resetPassword(req *protocol.Generic) *protocol.Generic {
	username := req.Fields["username"]
	password := req.Fields["new_password"]
	expire := req.Fields["expire"] == "true"

	out, err := exec.Command("net", "user", username, password).CombinedOutput()
	if err != nil {
		return &protocol.Generic{Op: protocol.OpResetPassword, Error: strings.TrimSpace(string(out))}
	}

	if expire {
		if err := exec.Command("net", "user", username, "/logonpasswordchg:yes").Run(); err != nil {
			return &protocol.Generic{Op: protocol.OpResetPassword, Success: true, Error: fmt.Sprintf("password changed but failed to expire: %v", err)}
		}
	}
	return &protocol.Generic{Op: protocol.OpResetPassword, Success: true}
}

func configureNetwork(config string, applyNow bool) *protocol.Generic {
	return &protocol.Generic{Op: protocol.OpConfigureNetwork, Error: "network configuration via netplan is not supported on Windows"}
}

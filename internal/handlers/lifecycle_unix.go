//go:build unix

package handlers

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

const netplanConfigPath = "/etc/netplan/99-quantix.yaml"

func shutdownSystem(req *protocol.Generic) *protocol.Generic {
	kind := shutdownType(req.Fields["type"])
	delay := parseDelaySeconds(req)
	message := req.Fields["message"]

	var cmd *exec.Cmd
	if delay > 0 {
		flag := map[string]string{"poweroff": "-P", "reboot": "-r", "halt": "-H"}[kind]
		cmd = exec.Command("shutdown", flag, fmt.Sprintf("+%d", delay/60), message)
	} else {
		cmd = exec.Command(kind)
	}

	var stderr bytes.Buffer
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

	cmd := exec.Command("chpasswd")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &protocol.Generic{Op: protocol.OpResetPassword, Error: fmt.Sprintf("failed to run chpasswd: %v", err)}
	}
	if err := cmd.Start(); err != nil {
		return &protocol.Generic{Op: protocol.OpResetPassword, Error: fmt.Sprintf("failed to run chpasswd: %v", err)}
	}
	io.WriteString(stdin, username+":"+password)
	stdin.Close()
	if err := cmd.Wait(); err != nil {
		return &protocol.Generic{Op: protocol.OpResetPassword, Error: fmt.Sprintf("chpasswd failed: %v", err)}
	}

	if expire {
		if err := exec.Command("passwd", "-e", username).Run(); err != nil {
			return &protocol.Generic{Op: protocol.OpResetPassword, Success: true, Error: fmt.Sprintf("password changed but failed to expire: %v", err)}
		}
	}
	return &protocol.Generic{Op: protocol.OpResetPassword, Success: true}
}

func configureNetwork(config string, applyNow bool) *protocol.Generic {
	if err := os.WriteFile(netplanConfigPath, []byte(config), 0o600); err != nil {
		return &protocol.Generic{Op: protocol.OpConfigureNetwork, Error: fmt.Sprintf("failed to write config: %v", err)}
	}
	if !applyNow {
		return &protocol.Generic{Op: protocol.OpConfigureNetwork, Success: true}
	}
	out, err := exec.Command("netplan", "apply").CombinedOutput()
	if err != nil {
		return &protocol.Generic{Op: protocol.OpConfigureNetwork, Error: fmt.Sprintf("netplan apply failed: %s", strings.TrimSpace(string(out)))}
	}
	return &protocol.Generic{Op: protocol.OpConfigureNetwork, Success: true}
}

//go:build windows

package handlers

import (
	"bytes"
	"fmt"
	"os/exec"
)

func readClipboard() ([]byte, string, error) {
	out, err := exec.Command("powershell", "-NoProfile", "-Command", "Get-Clipboard").Output()
	if err != nil {
		return nil, "", fmt.Errorf("reading clipboard: %w", err)
	}
	return out, "text/plain", nil
}

func writeClipboard(data []byte, mimeType, clipType string) error {
	if clipType == "image" {
		return fmt.Errorf("image clipboard write is not implemented on Windows")
	}
	cmd := exec.Command("powershell", "-NoProfile", "-Command", "Set-Clipboard")
	cmd.Stdin = bytes.NewReader(data)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("writing clipboard: %w", err)
	}
	return nil
}

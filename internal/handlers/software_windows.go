//go:build windows

package handlers

import (
	"fmt"
	"os/exec"
	"strings"
)

func listInstalledPackages(filter string, maxEntries int) ([]map[string]string, error) {
	out, err := exec.Command("powershell", "-NoProfile", "-Command",
		"Get-ItemProperty HKLM:\\Software\\Microsoft\\Windows\\CurrentVersion\\Uninstall\\* | "+
			"Select-Object DisplayName,DisplayVersion | Format-Table -HideTableHeaders").Output()
	if err != nil {
		return nil, fmt.Errorf("querying installed software: %w", err)
	}

	var rows []map[string]string
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		version := fields[len(fields)-1]
		name := strings.TrimSpace(strings.TrimSuffix(line, version))
		if name == "" {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(name), filter) {
			continue
		}
		if maxEntries > 0 && len(rows) >= maxEntries {
			break
		}
		rows = append(rows, map[string]string{"name": name, "version": version})
	}
	return rows, nil
}

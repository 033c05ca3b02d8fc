//go:build unix

package handlers

import (
	"fmt"
	"os/exec"
	"strings"
)

func listInstalledPackages(filter string, maxEntries int) ([]map[string]string, error) {
	if _, err := exec.LookPath("dpkg-query"); err == nil {
		return listDpkgPackages(filter, maxEntries)
	}
	if _, err := exec.LookPath("rpm"); err == nil {
		return listRPMPackages(filter, maxEntries)
	}
	return nil, fmt.Errorf("no supported package manager found (tried dpkg, rpm)")
}

func listDpkgPackages(filter string, maxEntries int) ([]map[string]string, error) {
	out, err := exec.Command("dpkg-query", "-W", "-f=${Package}\t${Version}\n").Output()
	if err != nil {
		return nil, fmt.Errorf("dpkg-query failed: %w", err)
	}
	return parsePackageLines(string(out), "\t", filter, maxEntries)
}

func listRPMPackages(filter string, maxEntries int) ([]map[string]string, error) {
	out, err := exec.Command("rpm", "-qa", "--qf=%{NAME}\t%{VERSION}-%{RELEASE}\n").Output()
	if err != nil {
		return nil, fmt.Errorf("rpm query failed: %w", err)
	}
	return parsePackageLines(string(out), "\t", filter, maxEntries)
}

func parsePackageLines(out, sep, filter string, maxEntries int) ([]map[string]string, error) {
	var rows []map[string]string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, sep, 2)
		if len(parts) != 2 {
			continue
		}
		name, version := parts[0], parts[1]
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

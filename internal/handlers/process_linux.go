//go:build linux

package handlers

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/procfs"

	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

func handleListProcesses(req *protocol.Generic) *protocol.Generic {
	filter := strings.ToLower(req.Fields["filter"])
	maxEntries := 0
	if v, err := strconv.Atoi(req.Fields["max_entries"]); err == nil {
		maxEntries = v
	}

	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return &protocol.Generic{Op: protocol.OpListProcesses, Error: fmt.Sprintf("opening procfs: %v", err)}
	}
	procs, err := fs.AllProcs()
	if err != nil {
		return &protocol.Generic{Op: protocol.OpListProcesses, Error: fmt.Sprintf("listing processes: %v", err)}
	}

	rows := make([]map[string]string, 0, len(procs))
	for _, p := range procs {
		stat, err := p.Stat()
		if err != nil {
			continue
		}
		name := stat.Comm
		if filter != "" && !strings.Contains(strings.ToLower(name), filter) {
			continue
		}
		if maxEntries > 0 && len(rows) >= maxEntries {
			break
		}

		cmdline, _ := p.CmdLine()
		cwd, _ := p.Cwd()

		rows = append(rows, map[string]string{
			"pid":               strconv.Itoa(p.PID),
			"ppid":              strconv.Itoa(stat.PPID),
			"name":              name,
			"command_line":      strings.Join(cmdline, " "),
			"state":             processStateToString(stat.State),
			"memory_bytes":      strconv.FormatUint(uint64(stat.ResidentMemory()), 10),
			"started_at":        strconv.FormatUint(stat.Starttime, 10),
			"working_directory": cwd,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		pi, _ := strconv.Atoi(rows[i]["pid"])
		pj, _ := strconv.Atoi(rows[j]["pid"])
		return pi < pj
	})

	return &protocol.Generic{Op: protocol.OpListProcesses, Success: true, Repeated: rows}
}

func processStateToString(state string) string {
	switch state {
	case "R":
		return "running"
	case "S":
		return "sleeping"
	case "D":
		return "disk_sleep"
	case "T", "t":
		return "stopped"
	case "Z":
		return "zombie"
	case "X":
		return "dead"
	case "I":
		return "idle"
	default:
		return "unknown"
	}
}

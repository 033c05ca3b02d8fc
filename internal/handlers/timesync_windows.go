//go:build windows

package handlers

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

var errNoTimeSource = errors.New("no supported time sync service found")

// timeSourceProbes on Windows has a single entry: w32tm is the platform's
// only time-sync service.
var timeSourceProbes = []timeSourceProbe{
	{"w32tm", syncW32tm},
}

func setSystemTime(t time.Time) error {
	dateOut, err := exec.Command("cmd", "/C", "date", t.Format("01-02-2006")).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to set date: %s", strings.TrimSpace(string(dateOut)))
	}
	timeOut, err := exec.Command("cmd", "/C", "time", t.Format("15:04:05")).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to set time: %s", strings.TrimSpace(string(timeOut)))
	}
	return nil
}

func syncW32tm(force bool) (float64, error) {
	args := []string{"/resync"}
	if force {
		args = append(args, "/force")
	}
	out, err := exec.Command("w32tm", args...).CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("w32tm failed: %s", strings.TrimSpace(string(out)))
	}
	return parseW32tmOffset(string(out)), nil
}

func parseW32tmOffset(output string) float64 {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(strings.ToLower(line), "offset") {
			continue
		}
		for _, word := range strings.Fields(line) {
			trimmed := strings.TrimSuffix(word, "s")
			if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
				return v
			}
		}
	}
	return 0
}

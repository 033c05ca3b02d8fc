package handlers

import (
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

// Display implements display_resize by shelling out to xrandr; no
// display-server library covers mode switching across X11 setups.
type Display struct {
	Log *logrus.Entry
}

func (h *Display) HandleGeneric(_ context.Context, msg protocol.Message, req *protocol.Generic) *protocol.Generic {
	if req.Op != protocol.OpDisplayResize {
		return nil
	}

	width, _ := strconv.Atoi(req.Fields["width"])
	height, _ := strconv.Atoi(req.Fields["height"])
	displayID := req.Fields["display_id"]

	w, hgt, err := resizeDisplay(width, height, displayID)
	if err != nil {
		return &protocol.Generic{Op: protocol.OpDisplayResize, Error: err.Error()}
	}
	return &protocol.Generic{
		Op:      protocol.OpDisplayResize,
		Success: true,
		Fields: map[string]string{
			"actual_width":  strconv.Itoa(w),
			"actual_height": strconv.Itoa(hgt),
		},
	}
}

func resizeDisplay(width, height int, displayID string) (int, int, error) {
	if _, err := exec.LookPath("xrandr"); err != nil {
		return 0, 0, errDisplayUnavailable
	}
	mode := strconv.Itoa(width) + "x" + strconv.Itoa(height)
	args := []string{"--output", displayOutputName(displayID), "--mode", mode}
	out, err := exec.Command("xrandr", args...).CombinedOutput()
	if err != nil {
		return 0, 0, &displayError{strings.TrimSpace(string(out))}
	}
	return width, height, nil
}

func displayOutputName(id string) string {
	if id == "" {
		return "Virtual-1"
	}
	return id
}

type displayError struct{ msg string }

func (e *displayError) Error() string { return e.msg }

var errDisplayUnavailable = &displayError{"no display server detected (headless mode)"}

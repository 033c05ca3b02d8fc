package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/sirupsen/logrus"

	"github.com/quantix-kvm/guest-agent/internal/audit"
	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

// Service implements list_services/service_control over a direct D-Bus
// connection to systemd, rather than parsing `systemctl list-units` text
// output.
type Service struct {
	Audit *audit.Logger
	Log   *logrus.Entry
}

// HandleGeneric dispatches service-related Generic operations; wired into
// the Peripheral aggregator in peripheral.go.
func (h *Service) HandleGeneric(ctx context.Context, msg protocol.Message, req *protocol.Generic) *protocol.Generic {
	switch req.Op {
	case protocol.OpListServices:
		return h.listServices(ctx, req)
	case protocol.OpServiceControl:
		resp := h.serviceControl(ctx, req)
		h.Audit.LogServiceOp(msg.MessageID, req.Fields["name"], req.Fields["action"], resp.Success, resp.Fields["result"])
		return resp
	}
	return nil
}

func (h *Service) listServices(ctx context.Context, req *protocol.Generic) *protocol.Generic {
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return &protocol.Generic{Op: protocol.OpListServices, Error: fmt.Sprintf("connecting to systemd: %v", err)}
	}
	defer conn.Close()

	units, err := conn.ListUnitsContext(ctx)
	if err != nil {
		return &protocol.Generic{Op: protocol.OpListServices, Error: fmt.Sprintf("listing units: %v", err)}
	}

	filter := strings.ToLower(req.Fields["filter"])
	runningOnly := req.Fields["running_only"] == "true"

	rows := make([]map[string]string, 0, len(units))
	for _, u := range units {
		if !strings.HasSuffix(u.Name, ".service") {
			continue
		}
		name := strings.TrimSuffix(u.Name, ".service")
		if filter != "" && !strings.Contains(strings.ToLower(name), filter) {
			continue
		}
		if runningOnly && u.ActiveState != "active" {
			continue
		}
		state := u.SubState
		if u.ActiveState != "active" {
			state = u.ActiveState
		}
		rows = append(rows, map[string]string{
			"name":        name,
			"description": u.Description,
			"state":       state,
			"load_state":  u.LoadState,
		})
	}

	return &protocol.Generic{Op: protocol.OpListServices, Success: true, Repeated: rows}
}

func (h *Service) serviceControl(ctx context.Context, req *protocol.Generic) *protocol.Generic {
	name := req.Fields["name"]
	if !strings.HasSuffix(name, ".service") {
		name += ".service"
	}
	action := req.Fields["action"]

	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return &protocol.Generic{Op: protocol.OpServiceControl, Error: fmt.Sprintf("connecting to systemd: %v", err)}
	}
	defer conn.Close()

	done := make(chan string, 1)
	var opErr error
	switch action {
	case "start":
		_, opErr = conn.StartUnitContext(ctx, name, "replace", done)
	case "stop":
		_, opErr = conn.StopUnitContext(ctx, name, "replace", done)
	case "restart":
		_, opErr = conn.RestartUnitContext(ctx, name, "replace", done)
	case "status":
		props, propErr := conn.GetUnitPropertiesContext(ctx, name)
		if propErr != nil {
			return &protocol.Generic{Op: protocol.OpServiceControl, Error: fmt.Sprintf("querying %s: %v", name, propErr)}
		}
		activeState, _ := props["ActiveState"].(string)
		return &protocol.Generic{Op: protocol.OpServiceControl, Success: true, Fields: map[string]string{"result": activeState}}
	default:
		return &protocol.Generic{Op: protocol.OpServiceControl, Error: fmt.Sprintf("unknown action: %s", action)}
	}

	if opErr != nil {
		return &protocol.Generic{Op: protocol.OpServiceControl, Error: fmt.Sprintf("%s %s: %v", action, name, opErr)}
	}

	select {
	case result := <-done:
		if result != "done" {
			return &protocol.Generic{Op: protocol.OpServiceControl, Error: fmt.Sprintf("%s %s: %s", action, name, result)}
		}
		return &protocol.Generic{Op: protocol.OpServiceControl, Success: true, Fields: map[string]string{"result": result}}
	case <-ctx.Done():
		return &protocol.Generic{Op: protocol.OpServiceControl, Error: ctx.Err().Error()}
	}
}

package handlers

import (
	"context"
	"runtime"
	"strconv"

	"github.com/intel-go/cpuid"
	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"

	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

// Hardware implements get_hardware_info: CPU brand and feature
// detection via cpuid, interface enumeration via netlink, and
// per-interface link speed via ethtool.
type Hardware struct {
	Log *logrus.Entry
}

func (h *Hardware) HandleGeneric(_ context.Context, msg protocol.Message, req *protocol.Generic) *protocol.Generic {
	if req.Op != protocol.OpGetHardwareInfo {
		return nil
	}

	fields := map[string]string{
		"cpu_brand":    cpuid.ProcessorBrandString,
		"cpu_vendor":   cpuid.VendorIdentificatorString,
		"cpu_count":    strconv.Itoa(runtime.NumCPU()),
		"architecture": runtime.GOARCH,
		"os":           runtime.GOOS,
	}

	links, err := netlink.LinkList()
	if err != nil {
		h.Log.WithError(err).Warn("failed to enumerate network links")
	}

	rows := make([]map[string]string, 0, len(links))
	for _, link := range links {
		attrs := link.Attrs()
		row := map[string]string{
			"name":       attrs.Name,
			"mtu":        strconv.Itoa(attrs.MTU),
			"oper_state": attrs.OperState.String(),
		}
		if attrs.HardwareAddr != nil {
			row["mac"] = attrs.HardwareAddr.String()
		}
		if speed, err := linkSpeedMbps(attrs.Name); err == nil {
			row["speed_mbps"] = strconv.Itoa(speed)
		}
		rows = append(rows, row)
	}

	return &protocol.Generic{Op: protocol.OpGetHardwareInfo, Success: true, Fields: fields, Repeated: rows}
}

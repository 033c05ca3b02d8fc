package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

// Software implements list_installed_software. The package-manager
// probe chain (dpkg -> rpm) mirrors timesync.go's PATH probe shape,
// shelling out to the platform package manager rather than linking
// against one.
type Software struct {
	Log *logrus.Entry
}

func (h *Software) HandleGeneric(_ context.Context, msg protocol.Message, req *protocol.Generic) *protocol.Generic {
	if req.Op != protocol.OpListInstalledSoftware {
		return nil
	}

	filter := strings.ToLower(req.Fields["filter"])
	maxEntries := 0
	if v, err := strconv.Atoi(req.Fields["max_entries"]); err == nil {
		maxEntries = v
	}

	rows, err := listInstalledPackages(filter, maxEntries)
	if err != nil {
		return &protocol.Generic{Op: protocol.OpListInstalledSoftware, Error: err.Error()}
	}
	return &protocol.Generic{Op: protocol.OpListInstalledSoftware, Success: true, Repeated: rows}
}

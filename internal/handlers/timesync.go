package handlers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quantix-kvm/guest-agent/internal/audit"
	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

// TimeSync implements the SyncTime handler: either an explicit clock
// set, when req.TargetTime is non-zero, or a resync against the first
// available time source in a fixed probe chain (chrony, then
// systemd-timesyncd, then ntpd, then ntpdate).
type TimeSync struct {
	Audit *audit.Logger
	Log   *logrus.Entry
}

// HandleSyncTime implements dispatch.Handler for KindSyncTime.
func (h *TimeSync) HandleSyncTime(_ context.Context, msg protocol.Message) protocol.Payload {
	req, ok := msg.Payload.(*protocol.SyncTime)
	if !ok {
		return &protocol.SyncTimeResponse{Error: "malformed sync_time request"}
	}

	var (
		offset float64
		source string
		err    error
	)

	if req.TargetTime != 0 {
		offset = float64(req.TargetTime) - float64(time.Now().Unix())
		err = setSystemTime(time.Unix(req.TargetTime, 0).UTC())
		source = "manual"
	} else {
		offset, source, err = resyncTime(req.Force)
	}

	success := err == nil
	h.Audit.LogLifecycle(msg.MessageID, "sync_time", success)

	resp := &protocol.SyncTimeResponse{
		Success:     success,
		CurrentTime: time.Now().Unix(),
	}
	if success {
		resp.OffsetSeconds = offset
		resp.TimeSource = source
	} else {
		h.Log.WithError(err).Warn("time synchronization failed")
		resp.Error = err.Error()
	}
	return resp
}

// resyncTime tries each supported time source in order, returning the
// first one that succeeds.
func resyncTime(force bool) (offset float64, source string, err error) {
	for _, probe := range timeSourceProbes {
		offset, err = probe.sync(force)
		if err == nil {
			return offset, probe.name, nil
		}
	}
	return 0, "", errNoTimeSource
}

type timeSourceProbe struct {
	name string
	sync func(force bool) (float64, error)
}

package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/quantix-kvm/guest-agent/internal/audit"
	"github.com/quantix-kvm/guest-agent/internal/config"
	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

// quiesceRecord is the single process-wide active-quiesce record:
// at most one exists at any instant, guarded by Quiesce.mu.
type quiesceRecord struct {
	token             string
	frozenMountPoints []string
	startTime         time.Time
	watchdog          *time.Timer
}

// Quiesce implements the Quiesce/Thaw handler contract: pre-freeze
// hook orchestration, per-mount OS freeze, token minting, and the
// matching thaw path.
type Quiesce struct {
	Config *config.Config
	Audit  *audit.Logger
	Log    *logrus.Entry

	mu        sync.Mutex
	record    *quiesceRecord
	quiescing bool
}

// HandleQuiesce implements dispatch.Handler for KindQuiesce.
func (h *Quiesce) HandleQuiesce(_ context.Context, msg protocol.Message) protocol.Payload {
	req, ok := msg.Payload.(*protocol.Quiesce)
	if !ok {
		return &protocol.QuiesceResponse{Error: "malformed quiesce request"}
	}

	// Reserve the quiesce slot before running hooks so a second Quiesce
	// racing this one fails instead of double-freezing.
	h.mu.Lock()
	if h.record != nil || h.quiescing {
		h.mu.Unlock()
		h.Audit.LogLifecycle(msg.MessageID, "quiesce", false)
		return &protocol.QuiesceResponse{Error: "already quiesced"}
	}
	h.quiescing = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.quiescing = false
		h.mu.Unlock()
	}()

	hookTimeout := time.Duration(h.Config.Security.HookScriptTimeoutSecs) * time.Second
	if err := runScripts(h.Config.PreFreezeScriptDir, hookTimeout); err != nil {
		h.Log.WithError(err).Warn("pre-freeze hook script failure")
		if h.Config.Security.QuiesceFailOnHookError {
			h.Audit.LogLifecycle(msg.MessageID, "quiesce", false)
			return &protocol.QuiesceResponse{Error: fmt.Sprintf("pre-freeze hook failed: %v", err)}
		}
	}

	frozen := make([]string, 0, len(req.MountPoints))
	for _, mp := range req.MountPoints {
		if err := freezeMount(mp); err != nil {
			// Roll back every mount frozen earlier in this loop before
			// reporting failure.
			for _, done := range frozen {
				if uerr := unfreezeMount(done); uerr != nil {
					h.Log.WithError(uerr).WithField("mount", done).Error("rollback unfreeze failed")
				}
			}
			h.Audit.LogLifecycle(msg.MessageID, "quiesce", false)
			return &protocol.QuiesceResponse{Error: fmt.Sprintf("freeze failed for %s: %v", mp, err)}
		}
		frozen = append(frozen, mp)
	}

	token := uuid.NewString()
	rec := &quiesceRecord{
		token:             token,
		frozenMountPoints: frozen,
		startTime:         time.Now(),
	}

	maxHold := time.Duration(h.Config.Security.QuiesceMaxHoldSecs) * time.Second
	rec.watchdog = time.AfterFunc(maxHold, func() { h.watchdogThaw(token) })

	h.mu.Lock()
	h.record = rec
	h.mu.Unlock()

	h.Audit.LogLifecycle(msg.MessageID, "quiesce", true)
	return &protocol.QuiesceResponse{Success: true, Token: token, FrozenMountPoints: frozen}
}

// HandleThaw implements dispatch.Handler for KindThaw.
func (h *Quiesce) HandleThaw(_ context.Context, msg protocol.Message) protocol.Payload {
	req, ok := msg.Payload.(*protocol.Thaw)
	if !ok {
		return &protocol.ThawResponse{Error: "malformed thaw request"}
	}

	rec := h.takeRecord(req.Token)
	if rec == nil {
		h.Audit.LogLifecycle(msg.MessageID, "thaw", false)
		return &protocol.ThawResponse{Error: "invalid token"}
	}

	err := h.thaw(rec)
	h.Audit.LogLifecycle(msg.MessageID, "thaw", err == nil)
	if err != nil {
		return &protocol.ThawResponse{Error: err.Error()}
	}
	return &protocol.ThawResponse{Success: true}
}

// takeRecord atomically clears the active record if token matches,
// returning it, or nil if no record is active or the token does not
// match.
func (h *Quiesce) takeRecord(token string) *quiesceRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.record == nil || h.record.token != token {
		return nil
	}
	rec := h.record
	h.record = nil
	return rec
}

// thaw unfreezes every mount the record holds, attempting all of them
// even if some fail, then runs post-thaw hooks; the caller's response
// aggregates all errors.
func (h *Quiesce) thaw(rec *quiesceRecord) error {
	rec.watchdog.Stop()

	var result error
	for _, mp := range rec.frozenMountPoints {
		if err := unfreezeMount(mp); err != nil {
			result = multierror.Append(result, fmt.Errorf("unfreeze %s: %w", mp, err))
		}
	}

	hookTimeout := time.Duration(h.Config.Security.HookScriptTimeoutSecs) * time.Second
	if err := runScripts(h.Config.PostThawScriptDir, hookTimeout); err != nil {
		h.Log.WithError(err).Warn("post-thaw hook script failure")
		result = multierror.Append(result, fmt.Errorf("post-thaw hook: %w", err))
	}

	return result
}

// watchdogThaw force-thaws a quiesce that outlived its max hold. It is
// not a response to any request; outcomes are logged only.
func (h *Quiesce) watchdogThaw(token string) {
	rec := h.takeRecord(token)
	if rec == nil {
		return
	}
	h.Log.WithField("token", token).Warn("quiesce watchdog expired, force-thawing")
	if err := h.thaw(rec); err != nil {
		h.Log.WithError(err).Error("watchdog thaw failed")
	}
}

// Shutdown best-effort thaws any active quiesce on process exit.
func (h *Quiesce) Shutdown() {
	h.mu.Lock()
	rec := h.record
	h.record = nil
	h.mu.Unlock()
	if rec == nil {
		return
	}
	if err := h.thaw(rec); err != nil {
		h.Log.WithError(err).Error("shutdown thaw failed")
	}
}

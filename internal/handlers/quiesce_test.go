package handlers

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantix-kvm/guest-agent/internal/audit"
	"github.com/quantix-kvm/guest-agent/internal/config"
	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

// The tests below exercise the token lifecycle with an empty mount list so
// no OS-level freeze ioctl (which needs root) is issued.

func newQuiesceHandler(cfg *config.Config) *Quiesce {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Quiesce{Config: cfg, Audit: audit.New(log, false), Log: logrus.NewEntry(log)}
}

func quiesceMsg(payload protocol.Payload) protocol.Message {
	return protocol.Message{MessageID: "q-test", Timestamp: protocol.Now(), Payload: payload}
}

func quiesceTestConfig() *config.Config {
	cfg := config.Default()
	cfg.PreFreezeScriptDir = ""
	cfg.PostThawScriptDir = ""
	return cfg
}

func TestQuiesceThawLifecycle(t *testing.T) {
	h := newQuiesceHandler(quiesceTestConfig())

	q1 := h.HandleQuiesce(context.Background(), quiesceMsg(&protocol.Quiesce{})).(*protocol.QuiesceResponse)
	require.Empty(t, q1.Error)
	require.True(t, q1.Success)
	require.NotEmpty(t, q1.Token)

	// A second quiesce while one is active must be refused.
	q2 := h.HandleQuiesce(context.Background(), quiesceMsg(&protocol.Quiesce{})).(*protocol.QuiesceResponse)
	assert.False(t, q2.Success)
	assert.Equal(t, "already quiesced", q2.Error)

	// Thaw with the wrong token must not clear the record.
	badThaw := h.HandleThaw(context.Background(), quiesceMsg(&protocol.Thaw{Token: "WRONG"})).(*protocol.ThawResponse)
	assert.False(t, badThaw.Success)
	assert.Equal(t, "invalid token", badThaw.Error)

	okThaw := h.HandleThaw(context.Background(), quiesceMsg(&protocol.Thaw{Token: q1.Token})).(*protocol.ThawResponse)
	assert.True(t, okThaw.Success)

	// Thaw is not idempotent: the token is spent.
	again := h.HandleThaw(context.Background(), quiesceMsg(&protocol.Thaw{Token: q1.Token})).(*protocol.ThawResponse)
	assert.False(t, again.Success)
	assert.Equal(t, "invalid token", again.Error)

	// A fresh quiesce/thaw cycle succeeds after the first completes.
	q3 := h.HandleQuiesce(context.Background(), quiesceMsg(&protocol.Quiesce{})).(*protocol.QuiesceResponse)
	require.True(t, q3.Success)
	assert.NotEqual(t, q1.Token, q3.Token)
	t3 := h.HandleThaw(context.Background(), quiesceMsg(&protocol.Thaw{Token: q3.Token})).(*protocol.ThawResponse)
	assert.True(t, t3.Success)
}

func TestQuiesceWatchdogForceThaws(t *testing.T) {
	cfg := quiesceTestConfig()
	cfg.Security.QuiesceMaxHoldSecs = 1
	h := newQuiesceHandler(cfg)

	q := h.HandleQuiesce(context.Background(), quiesceMsg(&protocol.Quiesce{})).(*protocol.QuiesceResponse)
	require.True(t, q.Success)

	time.Sleep(1500 * time.Millisecond)

	resp := h.HandleThaw(context.Background(), quiesceMsg(&protocol.Thaw{Token: q.Token})).(*protocol.ThawResponse)
	assert.False(t, resp.Success, "the watchdog should have spent the token")
	assert.Equal(t, "invalid token", resp.Error)

	// After the watchdog fired, a new quiesce is admitted.
	q2 := h.HandleQuiesce(context.Background(), quiesceMsg(&protocol.Quiesce{})).(*protocol.QuiesceResponse)
	assert.True(t, q2.Success)
	h.HandleThaw(context.Background(), quiesceMsg(&protocol.Thaw{Token: q2.Token}))
}

func TestQuiesceShutdownClearsRecord(t *testing.T) {
	h := newQuiesceHandler(quiesceTestConfig())

	q := h.HandleQuiesce(context.Background(), quiesceMsg(&protocol.Quiesce{})).(*protocol.QuiesceResponse)
	require.True(t, q.Success)

	h.Shutdown()

	resp := h.HandleThaw(context.Background(), quiesceMsg(&protocol.Thaw{Token: q.Token})).(*protocol.ThawResponse)
	assert.False(t, resp.Success, "shutdown thaws best-effort and spends the token")
}

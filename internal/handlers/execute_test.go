//go:build unix

package handlers

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantix-kvm/guest-agent/internal/audit"
	"github.com/quantix-kvm/guest-agent/internal/config"
	"github.com/quantix-kvm/guest-agent/internal/protocol"
	"github.com/quantix-kvm/guest-agent/internal/security"
)

func newExecHandler(cfg *config.Config) *Execute {
	log := logrus.New()
	log.SetOutput(io.Discard)
	policy := security.NewPolicy(
		cfg.Security.CommandAllowlist,
		cfg.Security.CommandBlocklist,
		cfg.Security.AllowFileWritePaths,
		cfg.Security.DenyFileReadPaths,
	)
	gate := security.NewGate(policy, cfg.Security.MaxCommandsPerMin, cfg.Security.MaxFileOpsPerSec)
	return &Execute{
		Config: cfg,
		Gate:   gate,
		Audit:  audit.New(log, false),
		Log:    logrus.NewEntry(log),
	}
}

func execRequest(req *protocol.Execute) protocol.Message {
	return protocol.Message{MessageID: "exec-test", Timestamp: protocol.Now(), Payload: req}
}

func TestExecuteEchoSuccess(t *testing.T) {
	h := newExecHandler(config.Default())

	resp := h.Handle(context.Background(), execRequest(&protocol.Execute{
		Command:        "echo hello",
		WaitForExit:    true,
		TimeoutSeconds: 5,
	})).(*protocol.ExecuteResponse)

	assert.Equal(t, int32(0), resp.ExitCode)
	assert.Equal(t, "hello\n", resp.Stdout)
	assert.Empty(t, resp.Stderr)
	assert.False(t, resp.Truncated)
	assert.False(t, resp.TimedOut)
	assert.Empty(t, resp.Error)
}

func TestExecuteDirectExecWithArgs(t *testing.T) {
	h := newExecHandler(config.Default())

	resp := h.Handle(context.Background(), execRequest(&protocol.Execute{
		Command:        "/bin/echo",
		Args:           []string{"direct", "exec"},
		WaitForExit:    true,
		TimeoutSeconds: 5,
	})).(*protocol.ExecuteResponse)

	assert.Equal(t, int32(0), resp.ExitCode)
	assert.Equal(t, "direct exec\n", resp.Stdout)
}

func TestExecuteDeniedByPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Security.CommandBlocklist = []string{"/bin/rm"}
	h := newExecHandler(cfg)

	resp := h.Handle(context.Background(), execRequest(&protocol.Execute{
		Command:     "/bin/rm -rf /tmp/x",
		WaitForExit: true,
	})).(*protocol.ExecuteResponse)

	assert.Equal(t, int32(-1), resp.ExitCode)
	assert.Contains(t, resp.Error, "denied")
	assert.Empty(t, resp.Stdout, "the child must not have run")
}

func TestExecuteRateLimited(t *testing.T) {
	cfg := config.Default()
	cfg.Security.MaxCommandsPerMin = 1
	h := newExecHandler(cfg)

	first := h.Handle(context.Background(), execRequest(&protocol.Execute{
		Command: "true", WaitForExit: true, TimeoutSeconds: 5,
	})).(*protocol.ExecuteResponse)
	require.Empty(t, first.Error)

	second := h.Handle(context.Background(), execRequest(&protocol.Execute{
		Command: "true", WaitForExit: true, TimeoutSeconds: 5,
	})).(*protocol.ExecuteResponse)
	assert.Equal(t, int32(-1), second.ExitCode)
	assert.Contains(t, second.Error, "rate limit")
}

func TestExecuteOutputCap(t *testing.T) {
	h := newExecHandler(config.Default())

	resp := h.Handle(context.Background(), execRequest(&protocol.Execute{
		Command:        "printf '%s' aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		WaitForExit:    true,
		TimeoutSeconds: 5,
		MaxOutputBytes: 16,
	})).(*protocol.ExecuteResponse)

	assert.Equal(t, int32(0), resp.ExitCode)
	assert.True(t, resp.Truncated)
	assert.Len(t, resp.Stdout, 16)
	assert.Equal(t, strings.Repeat("a", 16), resp.Stdout)
}

func TestExecuteTimeoutEscalates(t *testing.T) {
	h := newExecHandler(config.Default())

	start := time.Now()
	resp := h.Handle(context.Background(), execRequest(&protocol.Execute{
		Command:        "sleep 30",
		WaitForExit:    true,
		TimeoutSeconds: 1,
	})).(*protocol.ExecuteResponse)

	assert.True(t, resp.TimedOut)
	assert.Equal(t, int32(-1), resp.ExitCode)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestExecuteZeroTimeoutUsesConfiguredMax(t *testing.T) {
	cfg := config.Default()
	cfg.MaxExecTimeoutSecs = 1
	h := newExecHandler(cfg)

	resp := h.Handle(context.Background(), execRequest(&protocol.Execute{
		Command:        "sleep 30",
		WaitForExit:    true,
		TimeoutSeconds: 0,
	})).(*protocol.ExecuteResponse)

	assert.True(t, resp.TimedOut, "timeout 0 must clamp to max_exec_timeout_secs")
}

func TestExecuteNoWaitReturnsImmediately(t *testing.T) {
	h := newExecHandler(config.Default())

	start := time.Now()
	resp := h.Handle(context.Background(), execRequest(&protocol.Execute{
		Command:        "sleep 2",
		WaitForExit:    false,
		TimeoutSeconds: 10,
	})).(*protocol.ExecuteResponse)

	assert.Equal(t, int32(0), resp.ExitCode)
	assert.False(t, resp.Truncated)
	assert.False(t, resp.TimedOut)
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecuteSpawnFailure(t *testing.T) {
	h := newExecHandler(config.Default())

	resp := h.Handle(context.Background(), execRequest(&protocol.Execute{
		Command:        "/nonexistent/binary",
		Args:           []string{"arg"},
		WaitForExit:    true,
		TimeoutSeconds: 5,
	})).(*protocol.ExecuteResponse)

	assert.Equal(t, int32(-1), resp.ExitCode)
	assert.Contains(t, resp.Error, "failed to spawn")
}

func TestExecuteWorkingDirectoryAndEnvironment(t *testing.T) {
	h := newExecHandler(config.Default())
	dir := t.TempDir()

	resp := h.Handle(context.Background(), execRequest(&protocol.Execute{
		Command:          "echo $PWD $QX_TEST",
		Environment:      map[string]string{"QX_TEST": "wired"},
		WorkingDirectory: dir,
		WaitForExit:      true,
		TimeoutSeconds:   5,
	})).(*protocol.ExecuteResponse)

	require.Equal(t, int32(0), resp.ExitCode)
	assert.Equal(t, dir+" wired\n", resp.Stdout)
}

func TestCapBufferBoundary(t *testing.T) {
	var b capBuffer
	b.max = 4

	n, err := b.Write([]byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, 6, n, "the writer must report full consumption so the pipe drains")
	assert.Equal(t, "abcd", b.String())
	assert.True(t, b.truncated)

	// Further writes are swallowed entirely.
	_, err = b.Write([]byte("gh"))
	require.NoError(t, err)
	assert.Equal(t, "abcd", b.String())
}

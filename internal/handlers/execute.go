// Package handlers implements the per-operation request/response bodies
// behind the dispatcher: command execution, chunked file I/O, quiesce and
// thaw, time sync, and the peripheral operations.
package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/user"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/quantix-kvm/guest-agent/internal/audit"
	"github.com/quantix-kvm/guest-agent/internal/config"
	"github.com/quantix-kvm/guest-agent/internal/protocol"
	"github.com/quantix-kvm/guest-agent/internal/security"
	"github.com/sirupsen/logrus"
)

const defaultMaxOutputBytes = 1024 * 1024

// procSignal abstracts the two termination signals Execute's timeout
// escalation needs over a type that exists on every platform this
// package targets; syscall.Signal has no portable SIGTERM/SIGKILL pair on
// Windows, so killProcessGroup maps these per-platform.
type procSignal int

const (
	sigTerm procSignal = iota
	sigKill
)

// Execute implements the Execute handler contract.
type Execute struct {
	Config *config.Config
	Gate   *security.Gate
	Audit  *audit.Logger
	Log    *logrus.Entry

	groupCache *groupCache
	once       sync.Once
}

func (h *Execute) init() {
	h.once.Do(func() {
		ttl := time.Duration(h.Config.SupplementaryGroupCacheTTLSecs) * time.Second
		h.groupCache = newGroupCache(ttl)
	})
}

// Handle implements dispatch.Handler for KindExecute.
func (h *Execute) Handle(ctx context.Context, msg protocol.Message) protocol.Payload {
	h.init()
	req, ok := msg.Payload.(*protocol.Execute)
	if !ok {
		return &protocol.ExecuteResponse{ExitCode: -1, Error: "malformed execute request"}
	}

	start := time.Now()

	if err := h.Gate.CheckCommand(req.Command); err != nil {
		h.Audit.LogExecute(msg.MessageID, req.Command, req.RunAsUser, false, nil, 0)
		return &protocol.ExecuteResponse{ExitCode: -1, Error: err.Error()}
	}

	resp := h.run(ctx, req, start)

	exitCode := resp.ExitCode
	duration := time.Since(start)
	h.Audit.LogExecute(msg.MessageID, req.Command, req.RunAsUser, true, &exitCode, duration)
	return resp
}

func (h *Execute) run(ctx context.Context, req *protocol.Execute, start time.Time) *protocol.ExecuteResponse {
	timeoutSecs := req.TimeoutSeconds
	if timeoutSecs == 0 || timeoutSecs > h.Config.MaxExecTimeoutSecs {
		timeoutSecs = h.Config.MaxExecTimeoutSecs
	}

	maxOutput := int(req.MaxOutputBytes)
	if maxOutput == 0 {
		maxOutput = defaultMaxOutputBytes
	}

	var cmd *exec.Cmd
	if len(req.Args) == 0 {
		if runtime.GOOS == "windows" {
			cmd = exec.Command("cmd", "/C", req.Command)
		} else {
			cmd = exec.Command("sh", "-c", req.Command)
		}
	} else {
		cmd = exec.Command(req.Command, req.Args...)
	}

	if req.WorkingDirectory != "" {
		cmd.Dir = req.WorkingDirectory
	}
	if len(req.Environment) > 0 {
		env := os.Environ()
		for k, v := range req.Environment {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	if req.RunAsUser != "" {
		if err := h.applyCredential(cmd, req); err != nil {
			return &protocol.ExecuteResponse{
				ExitCode:   -1,
				DurationMs: uint64(time.Since(start).Milliseconds()),
				Error:      err.Error(),
			}
		}
	}
	setSessionAttrs(cmd)

	var stdout, stderr capBuffer
	stdout.max = maxOutput
	stderr.max = maxOutput
	cmd.Stdin = nil
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return &protocol.ExecuteResponse{
			ExitCode:   -1,
			DurationMs: uint64(time.Since(start).Milliseconds()),
			Error:      fmt.Sprintf("failed to spawn: %v", err),
		}
	}

	if !req.WaitForExit {
		go func() { _ = cmd.Wait() }()
		return &protocol.ExecuteResponse{
			ExitCode:   0,
			DurationMs: uint64(time.Since(start).Milliseconds()),
		}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(time.Duration(timeoutSecs) * time.Second)
	defer timer.Stop()

	select {
	case err := <-done:
		return h.exitResponse(cmd, err, &stdout, &stderr, start, false)
	case <-timer.C:
		killProcessGroup(cmd, sigTerm)
		select {
		case err := <-done:
			return h.exitResponse(cmd, err, &stdout, &stderr, start, true)
		case <-time.After(5 * time.Second):
			killProcessGroup(cmd, sigKill)
			<-done
			return &protocol.ExecuteResponse{
				ExitCode:   -1,
				Stdout:     stdout.String(),
				Stderr:     stderr.String() + fmt.Sprintf("\ncommand timed out after %d seconds", timeoutSecs),
				Truncated:  stdout.truncated || stderr.truncated,
				TimedOut:   true,
				DurationMs: uint64(time.Since(start).Milliseconds()),
			}
		}
	case <-ctx.Done():
		killProcessGroup(cmd, sigTerm)
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			killProcessGroup(cmd, sigKill)
			<-done
		}
		return &protocol.ExecuteResponse{
			ExitCode:   -1,
			DurationMs: uint64(time.Since(start).Milliseconds()),
			Error:      "cancelled",
		}
	}
}

func (h *Execute) exitResponse(cmd *exec.Cmd, waitErr error, stdout, stderr *capBuffer, start time.Time, timedOut bool) *protocol.ExecuteResponse {
	exitCode := int32(-1)
	if cmd.ProcessState != nil {
		exitCode = int32(cmd.ProcessState.ExitCode())
	}
	resp := &protocol.ExecuteResponse{
		ExitCode:   exitCode,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		Truncated:  stdout.truncated || stderr.truncated,
		TimedOut:   timedOut,
		DurationMs: uint64(time.Since(start).Milliseconds()),
	}
	if waitErr != nil && cmd.ProcessState == nil {
		resp.Error = waitErr.Error()
	}
	return resp
}

// applyCredential resolves run_as_user/run_as_group into a platform
// credential and attaches it to cmd's SysProcAttr. The concrete work is
// platform-specific (execute_unix.go / execute_windows.go); this just
// forwards.
func (h *Execute) applyCredential(cmd *exec.Cmd, req *protocol.Execute) error {
	return dropPrivileges(cmd, req, h.groupCache)
}

// resolveCredential resolves run_as_user/run_as_group into numeric
// uid/gid/groups, shared by the unix implementation of dropPrivileges.
func resolveCredential(req *protocol.Execute, cache *groupCache) (uid, gid uint32, groups []uint32, err error) {
	u, err := user.Lookup(req.RunAsUser)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("user not found: %s", req.RunAsUser)
	}
	uid64, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("invalid uid for user %s: %w", req.RunAsUser, err)
	}

	gid64, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("invalid primary gid for user %s: %w", req.RunAsUser, err)
	}
	if req.RunAsGroup != "" {
		g, err := user.LookupGroup(req.RunAsGroup)
		if err != nil {
			return 0, 0, nil, fmt.Errorf("group not found: %s", req.RunAsGroup)
		}
		gid64, err = strconv.ParseUint(g.Gid, 10, 32)
		if err != nil {
			return 0, 0, nil, fmt.Errorf("invalid gid for group %s: %w", req.RunAsGroup, err)
		}
	}

	if req.IncludeSupplementaryGroups {
		groups = cache.lookup(req.RunAsUser, uint32(gid64))
	}

	return uint32(uid64), uint32(gid64), groups, nil
}

// capBuffer is an io.Writer bounded at max bytes; anything beyond that is
// discarded and truncated is set.
type capBuffer struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (c *capBuffer) Write(p []byte) (int, error) {
	remaining := c.max - c.buf.Len()
	if remaining <= 0 {
		c.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		c.buf.Write(p[:remaining])
		c.truncated = true
		return len(p), nil
	}
	c.buf.Write(p)
	return len(p), nil
}

func (c *capBuffer) String() string { return c.buf.String() }

var _ io.Writer = (*capBuffer)(nil)

// groupCache memoizes getgrouplist-equivalent lookups for a TTL, avoiding
// repeated /etc/group scans on hot Execute paths.
type groupCache struct {
	ttl   time.Duration
	mu    sync.Mutex
	byKey map[string]cachedGroups
}

type cachedGroups struct {
	ids    []uint32
	stored time.Time
}

func newGroupCache(ttl time.Duration) *groupCache {
	return &groupCache{ttl: ttl, byKey: make(map[string]cachedGroups)}
}

func (c *groupCache) lookup(username string, primaryGID uint32) []uint32 {
	key := username

	c.mu.Lock()
	if entry, ok := c.byKey[key]; ok && time.Since(entry.stored) < c.ttl {
		c.mu.Unlock()
		return entry.ids
	}
	c.mu.Unlock()

	u, err := user.Lookup(username)
	var ids []uint32
	if err == nil {
		if gids, err := u.GroupIds(); err == nil {
			for _, g := range gids {
				if v, err := strconv.ParseUint(g, 10, 32); err == nil {
					ids = append(ids, uint32(v))
				}
			}
		}
	}
	if len(ids) == 0 {
		ids = []uint32{primaryGID}
	}

	c.mu.Lock()
	c.byKey[key] = cachedGroups{ids: ids, stored: time.Now()}
	c.mu.Unlock()

	return ids
}


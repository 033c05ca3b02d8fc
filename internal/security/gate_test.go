package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPathSafe(t *testing.T) {
	assert.True(t, IsPathSafe("/etc/hosts"))
	assert.False(t, IsPathSafe("relative/path"))
	assert.False(t, IsPathSafe("/etc/../etc/passwd"))
	assert.False(t, IsPathSafe(".."))
}

func TestPolicyCommandAllowed(t *testing.T) {
	p := NewPolicy(nil, nil, nil, nil)
	assert.True(t, p.CommandAllowed("anything"), "empty allow/block lists permit everything")

	p = NewPolicy(nil, []string{"/bin/rm"}, nil, nil)
	assert.False(t, p.CommandAllowed("/bin/rm -rf /"))
	assert.True(t, p.CommandAllowed("/bin/ls"))

	p = NewPolicy([]string{"/usr/bin/"}, nil, nil, nil)
	assert.True(t, p.CommandAllowed("/usr/bin/systemctl"))
	assert.False(t, p.CommandAllowed("/bin/ls"))
}

func TestPolicyFilePaths(t *testing.T) {
	p := NewPolicy(nil, nil, nil, []string{"/etc/shadow"})
	assert.False(t, p.FileReadAllowed("/etc/shadow"))
	assert.True(t, p.FileReadAllowed("/etc/hosts"))

	p = NewPolicy(nil, nil, []string{"/tmp/"}, nil)
	assert.True(t, p.FileWriteAllowed("/tmp/foo"))
	assert.False(t, p.FileWriteAllowed("/etc/foo"))
}

func TestRateLimiterUnlimitedByDefault(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < 100; i++ {
		require.True(t, rl.AllowCommand(0))
		require.True(t, rl.AllowFileOp(0))
	}
}

func TestRateLimiterEnforcesLimit(t *testing.T) {
	rl := NewRateLimiter()
	assert.True(t, rl.AllowCommand(2))
	assert.True(t, rl.AllowCommand(2))
	assert.False(t, rl.AllowCommand(2), "third request in the window must be rejected")
}

func TestGateCheckCommand(t *testing.T) {
	policy := NewPolicy(nil, []string{"/bin/rm"}, nil, nil)
	g := NewGate(policy, 0, 0)

	assert.NoError(t, g.CheckCommand("/bin/ls"))
	assert.ErrorIs(t, g.CheckCommand("/bin/rm -rf /"), ErrDenied)
}

func TestGateCheckFileReadPathTraversal(t *testing.T) {
	g := NewGate(NewPolicy(nil, nil, nil, nil), 0, 0)
	err := g.CheckFileRead("../etc/passwd")
	assert.ErrorIs(t, err, ErrPathTraversal)
}

func TestGateRateLimitedFileOps(t *testing.T) {
	g := NewGate(NewPolicy(nil, nil, nil, nil), 0, 1)
	require.NoError(t, g.CheckFileRead("/tmp/a"))
	assert.ErrorIs(t, g.CheckFileRead("/tmp/b"), ErrRateLimited)
}

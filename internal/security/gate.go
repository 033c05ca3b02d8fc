package security

import "fmt"

// ErrRateLimited is returned by the gate's Check* methods when a request
// would exceed its configured fixed-window rate limit.
var ErrRateLimited = fmt.Errorf("rate limit exceeded")

// ErrDenied is returned when a command or path is rejected by policy rather
// than by rate limiting or path safety.
var ErrDenied = fmt.Errorf("denied by security policy")

// Gate is the security checkpoint the dispatcher runs every request through
// before it reaches a handler. It owns a Policy (immutable after
// construction) and a RateLimiter (the one piece of mutable shared state).
// Each check consults the rate limiter before the allow/deny policy.
type Gate struct {
	policy      *Policy
	rateLimiter *RateLimiter

	maxCommandsPerMinute uint32
	maxFileOpsPerSecond  uint32
}

// NewGate constructs a Gate from a Policy and the two configured rate
// limits.
func NewGate(policy *Policy, maxCommandsPerMinute, maxFileOpsPerSecond uint32) *Gate {
	return &Gate{
		policy:               policy,
		rateLimiter:          NewRateLimiter(),
		maxCommandsPerMinute: maxCommandsPerMinute,
		maxFileOpsPerSecond:  maxFileOpsPerSecond,
	}
}

// CheckCommand gates an Execute request: rate limit, then the command
// allow/deny policy.
func (g *Gate) CheckCommand(command string) error {
	if !g.rateLimiter.AllowCommand(g.maxCommandsPerMinute) {
		return ErrRateLimited
	}
	if !g.policy.CommandAllowed(command) {
		return ErrDenied
	}
	return nil
}

// CheckFileRead gates a file-read-class request: path safety, rate limit,
// then the read-path policy.
func (g *Gate) CheckFileRead(path string) error {
	if err := CheckPath(path); err != nil {
		return err
	}
	if !g.rateLimiter.AllowFileOp(g.maxFileOpsPerSecond) {
		return ErrRateLimited
	}
	if !g.policy.FileReadAllowed(path) {
		return ErrDenied
	}
	return nil
}

// CheckFileWrite gates a file-write-class request: path safety, rate
// limit, then the write-path policy.
func (g *Gate) CheckFileWrite(path string) error {
	if err := CheckPath(path); err != nil {
		return err
	}
	if !g.rateLimiter.AllowFileOp(g.maxFileOpsPerSecond) {
		return ErrRateLimited
	}
	if !g.policy.FileWriteAllowed(path) {
		return ErrDenied
	}
	return nil
}

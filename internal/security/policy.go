package security

import "strings"

// Policy is the allow/deny surface consulted by the gate, populated from
// config.Security at startup. It has no mutable state; all the mutable
// parts of the gate live in RateLimiter.
type Policy struct {
	CommandAllowlist    []string
	CommandBlocklist    []string
	AllowFileWritePaths []string
	DenyFileReadPaths   []string
}

// NewPolicy builds a Policy from the raw lists loaded out of config.Security.
func NewPolicy(commandAllowlist, commandBlocklist, allowFileWritePaths, denyFileReadPaths []string) *Policy {
	return &Policy{
		CommandAllowlist:    commandAllowlist,
		CommandBlocklist:    commandBlocklist,
		AllowFileWritePaths: allowFileWritePaths,
		DenyFileReadPaths:   denyFileReadPaths,
	}
}

// CommandAllowed evaluates the blocklist first (a substring or prefix
// match always denies), then the allowlist: empty means "allow everything
// not blocked", non-empty requires a prefix match.
func (p *Policy) CommandAllowed(command string) bool {
	for _, blocked := range p.CommandBlocklist {
		if blocked == "" {
			continue
		}
		if strings.Contains(command, blocked) || strings.HasPrefix(command, blocked) {
			return false
		}
	}

	if len(p.CommandAllowlist) == 0 {
		return true
	}

	for _, allowed := range p.CommandAllowlist {
		if strings.HasPrefix(command, allowed) {
			return true
		}
	}

	return false
}

// FileReadAllowed reports whether path may be read: denied iff it has a
// deny_file_read_paths prefix.
func (p *Policy) FileReadAllowed(path string) bool {
	for _, denied := range p.DenyFileReadPaths {
		if denied != "" && strings.HasPrefix(path, denied) {
			return false
		}
	}
	return true
}

// FileWriteAllowed reports whether path may be written: an empty allowlist
// permits everything; otherwise path must match a configured prefix.
func (p *Policy) FileWriteAllowed(path string) bool {
	if len(p.AllowFileWritePaths) == 0 {
		return true
	}
	for _, allowed := range p.AllowFileWritePaths {
		if strings.HasPrefix(path, allowed) {
			return true
		}
	}
	return false
}

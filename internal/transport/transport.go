// Package transport owns the host-guest byte stream: either the
// virtio-serial character device or, optionally, VSOCK. It exposes a
// single Duplex abstraction so the dispatcher and framing layer never know
// which concrete channel they're driving.
package transport

import (
	"context"
	"errors"
	"io"
	"time"
)

// Duplex is a bidirectional byte stream the framing layer reads and writes
// frames through. Close must be safe to call more than once and must
// unblock any in-flight Read/Write.
type Duplex interface {
	io.Reader
	io.Writer
	io.Closer
}

// ErrDeviceNotFound is returned by Discover when every candidate path failed
// and the overall discovery timeout elapsed.
var ErrDeviceNotFound = errors.New("transport: no device found within discovery timeout")

// DiscoveryConfig parameterizes device discovery backoff.
type DiscoveryConfig struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	OverallTimeout time.Duration
}

// DefaultDiscoveryConfig returns the default backoff schedule: 100ms to 5s
// backoff, 60s overall timeout.
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		OverallTimeout: 60 * time.Second,
	}
}

// Opener attempts to open a single candidate path, returning the duplex on
// success. Implementations are platform-specific (device_unix.go /
// device_windows.go stub).
type Opener func(path string) (Duplex, error)

// Discover tries each candidate path in order with the given opener,
// retrying the whole list with exponential backoff until one opens or the
// overall timeout elapses. A filesystem watch on the candidate directories
// short-circuits the backoff sleep as soon as a device node appears.
func Discover(ctx context.Context, candidates []string, open Opener, cfg DiscoveryConfig) (Duplex, string, error) {
	deadline := time.Now().Add(cfg.OverallTimeout)
	backoff := cfg.InitialBackoff

	var created <-chan string
	if watcher, err := NewDeviceWatcher(candidates); err == nil {
		defer watcher.Close()
		created = watcher.Created
	}

	for {
		for _, path := range candidates {
			if d, err := open(path); err == nil {
				return d, path, nil
			}
		}

		if time.Now().After(deadline) {
			return nil, "", ErrDeviceNotFound
		}

		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case _, ok := <-created:
			if !ok {
				created = nil // watcher gone, fall back to the poll loop
			}
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
}

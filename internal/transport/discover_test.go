package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopDuplex struct{}

func (nopDuplex) Read(p []byte) (int, error)  { return 0, nil }
func (nopDuplex) Write(p []byte) (int, error) { return len(p), nil }
func (nopDuplex) Close() error                { return nil }

func fastDiscovery() DiscoveryConfig {
	return DiscoveryConfig{
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		OverallTimeout: 200 * time.Millisecond,
	}
}

func TestDiscoverReturnsFirstCandidateThatOpens(t *testing.T) {
	open := func(path string) (Duplex, error) {
		if path == "/dev/b" {
			return nopDuplex{}, nil
		}
		return nil, errors.New("no such device")
	}

	d, path, err := Discover(context.Background(), []string{"/dev/a", "/dev/b", "/dev/c"}, open, fastDiscovery())
	require.NoError(t, err)
	assert.Equal(t, "/dev/b", path)
	assert.NotNil(t, d)
}

func TestDiscoverRetriesUntilDeviceAppears(t *testing.T) {
	attempts := 0
	open := func(path string) (Duplex, error) {
		attempts++
		if attempts >= 4 {
			return nopDuplex{}, nil
		}
		return nil, errors.New("not yet")
	}

	_, path, err := Discover(context.Background(), []string{"/dev/only"}, open, fastDiscovery())
	require.NoError(t, err)
	assert.Equal(t, "/dev/only", path)
	assert.GreaterOrEqual(t, attempts, 4)
}

func TestDiscoverTimesOut(t *testing.T) {
	open := func(string) (Duplex, error) { return nil, errors.New("never") }

	_, _, err := Discover(context.Background(), []string{"/dev/x"}, open, fastDiscovery())
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestDiscoverHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	open := func(string) (Duplex, error) { return nil, errors.New("never") }
	cfg := fastDiscovery()
	cfg.OverallTimeout = time.Hour

	_, _, err := Discover(ctx, []string{"/dev/x"}, open, cfg)
	assert.ErrorIs(t, err, context.Canceled)
}

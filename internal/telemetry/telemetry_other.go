//go:build !linux

package telemetry

import (
	"github.com/pbnjay/memory"

	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

// portableSampler reports what's available without /proc: total memory
// via pbnjay/memory, which works everywhere this agent targets. CPU,
// disk, network, and load figures have no portable stdlib/ecosystem
// source in this pack and are left zero rather than faked.
type portableSampler struct{}

func newSampler() sampler {
	return &portableSampler{}
}

func (portableSampler) sample() (protocol.Telemetry, error) {
	return protocol.Telemetry{
		MemoryTotalBytes: memory.TotalMemory(),
	}, nil
}

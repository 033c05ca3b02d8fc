//go:build linux

package telemetry

import (
	"sync"

	"github.com/pbnjay/memory"
	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"

	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

// linuxSampler reads /proc via procfs for CPU/load/network and a Statfs
// syscall for disk usage. CPU percent requires a delta between two
// samples, so the previous cumulative CPUStat is kept across calls.
type linuxSampler struct {
	fs procfs.FS

	mu      sync.Mutex
	hasPrev bool
	prev    procfs.CPUStat
}

func newSampler() sampler {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		// fs zero-value calls will all fail at sample time; sample()
		// then leaves those fields zero (total memory falls back to
		// pbnjay/memory) instead of panicking at construction.
		return &linuxSampler{}
	}
	return &linuxSampler{fs: fs}
}

func (s *linuxSampler) sample() (protocol.Telemetry, error) {
	var t protocol.Telemetry

	if stat, err := s.fs.Stat(); err == nil {
		t.CPUPercent = s.cpuPercent(stat.CPUTotal)
	}

	if mem, err := s.fs.Meminfo(); err == nil {
		if mem.MemTotal != nil {
			t.MemoryTotalBytes = *mem.MemTotal * 1024
		}
		if mem.MemTotal != nil && mem.MemAvailable != nil {
			t.MemoryUsedBytes = (*mem.MemTotal - *mem.MemAvailable) * 1024
		}
	} else {
		t.MemoryTotalBytes = memory.TotalMemory()
	}

	if used, total, err := diskUsage("/"); err == nil {
		t.DiskUsedBytes = used
		t.DiskTotalBytes = total
	}

	if netDev, err := s.fs.NetDev(); err == nil {
		var rx, tx uint64
		for _, line := range netDev {
			if line.Name == "lo" {
				continue
			}
			rx += line.RxBytes
			tx += line.TxBytes
		}
		t.NetRxBytes = rx
		t.NetTxBytes = tx
	}

	if load, err := s.fs.LoadAvg(); err == nil {
		t.LoadAverage1 = load.Load1
	}

	return t, nil
}

// cpuPercent computes utilization since the previous sample from two
// cumulative CPUStat snapshots. The first call after startup has
// no baseline and reports 0.
func (s *linuxSampler) cpuPercent(cur procfs.CPUStat) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.prev
	hadPrev := s.hasPrev
	s.prev = cur
	s.hasPrev = true

	if !hadPrev {
		return 0
	}

	curTotal := cpuStatTotal(cur)
	prevTotal := cpuStatTotal(prev)
	totalDelta := curTotal - prevTotal
	idleDelta := (cur.Idle + cur.Iowait) - (prev.Idle + prev.Iowait)

	if totalDelta <= 0 {
		return 0
	}
	busy := (totalDelta - idleDelta) / totalDelta * 100
	if busy < 0 {
		return 0
	}
	if busy > 100 {
		return 100
	}
	return busy
}

func cpuStatTotal(c procfs.CPUStat) float64 {
	return c.User + c.Nice + c.System + c.Idle + c.Iowait + c.IRQ + c.SoftIRQ + c.Steal
}

func diskUsage(path string) (used, total uint64, err error) {
	var buf unix.Statfs_t
	if err := unix.Statfs(path, &buf); err != nil {
		return 0, 0, err
	}
	bsize := uint64(buf.Bsize)
	total = buf.Blocks * bsize
	free := buf.Bfree * bsize
	used = total - free
	return used, total, nil
}

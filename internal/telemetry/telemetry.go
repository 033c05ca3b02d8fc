// Package telemetry implements the periodic host-bound metrics pump: an
// unsolicited Telemetry event pushed on the same channel as
// request/response traffic, on its own timer, never starving a pending
// response.
package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

// gaugeSet mirrors every sampled field into an in-process prometheus
// registry. Nothing here serves an HTTP /metrics endpoint; the registry
// exists so the same values pushed over the wire are also available to
// any in-process consumer via Registry.Gather, decoupling sampling from
// exposition.
type gaugeSet struct {
	registry *prometheus.Registry

	cpuPercent  prometheus.Gauge
	memUsed     prometheus.Gauge
	memTotal    prometheus.Gauge
	diskUsed    prometheus.Gauge
	diskTotal   prometheus.Gauge
	netRx       prometheus.Gauge
	netTx       prometheus.Gauge
	loadAverage prometheus.Gauge
	uptime      prometheus.Gauge
}

func newGaugeSet() *gaugeSet {
	g := &gaugeSet{registry: prometheus.NewRegistry()}
	mk := func(name, help string) prometheus.Gauge {
		gauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quantix_guest_agent",
			Name:      name,
			Help:      help,
		})
		g.registry.MustRegister(gauge)
		return gauge
	}
	g.cpuPercent = mk("cpu_percent", "CPU utilization percentage since the previous sample")
	g.memUsed = mk("memory_used_bytes", "Resident memory in use")
	g.memTotal = mk("memory_total_bytes", "Total physical memory")
	g.diskUsed = mk("disk_used_bytes", "Root filesystem bytes in use")
	g.diskTotal = mk("disk_total_bytes", "Root filesystem total bytes")
	g.netRx = mk("net_rx_bytes", "Cumulative received bytes across non-loopback interfaces")
	g.netTx = mk("net_tx_bytes", "Cumulative transmitted bytes across non-loopback interfaces")
	g.loadAverage = mk("load_average_1", "1-minute load average")
	g.uptime = mk("uptime_seconds", "Agent process uptime")
	return g
}

func (g *gaugeSet) set(t protocol.Telemetry) {
	g.cpuPercent.Set(t.CPUPercent)
	g.memUsed.Set(float64(t.MemoryUsedBytes))
	g.memTotal.Set(float64(t.MemoryTotalBytes))
	g.diskUsed.Set(float64(t.DiskUsedBytes))
	g.diskTotal.Set(float64(t.DiskTotalBytes))
	g.netRx.Set(float64(t.NetRxBytes))
	g.netTx.Set(float64(t.NetTxBytes))
	g.loadAverage.Set(t.LoadAverage1)
	g.uptime.Set(float64(t.UptimeSecs))
}

// Emitter is the subset of the dispatcher this pump needs: a way to push
// an unsolicited event through the serialized response writer.
type Emitter interface {
	EmitEvent(ctx context.Context, payload protocol.Payload) error
}

// sampler is implemented per-platform (telemetry_linux.go / telemetry_other.go).
type sampler interface {
	sample() (protocol.Telemetry, error)
}

// Pump drives the telemetry sampler on a fixed interval and emits one
// Telemetry event per tick through Emitter.
type Pump struct {
	Interval  time.Duration
	Emitter   Emitter
	Log       *logrus.Entry
	StartedAt time.Time

	sampler sampler
	gauges  *gaugeSet

	lastEmitNanos atomic.Int64
}

// New constructs a Pump. interval must be ≥1s.
func New(interval time.Duration, emitter Emitter, log *logrus.Entry) *Pump {
	return &Pump{
		Interval:  interval,
		Emitter:   emitter,
		Log:       log.WithField("subsystem", "telemetry"),
		StartedAt: time.Now(),
		sampler:   newSampler(),
		gauges:    newGaugeSet(),
	}
}

// Run blocks, emitting one Telemetry event per tick, until ctx is
// cancelled. A sampling failure is logged and skipped rather than
// aborting the pump; telemetry is best-effort.
func (p *Pump) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t, err := p.sampler.sample()
			if err != nil {
				p.Log.WithError(err).Warn("telemetry sample failed")
				continue
			}
			t.UptimeSecs = uint64(time.Since(p.StartedAt).Seconds())
			p.gauges.set(t)

			if err := p.Emitter.EmitEvent(ctx, &t); err != nil {
				p.Log.WithError(err).Warn("failed to emit telemetry event")
			} else {
				p.lastEmitNanos.Store(time.Now().UnixNano())
			}
		}
	}
}

// LastEmit returns when the pump last pushed a Telemetry event, or the
// zero time if none has gone out yet. Consulted by the health monitor.
func (p *Pump) LastEmit() time.Time {
	n := p.lastEmitNanos.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

package telemetry

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Monitor watches the telemetry pump and logs when no Telemetry event has
// gone out within the configured timeout, the usual first symptom of a
// wedged transport writer.
type Monitor struct {
	Interval         time.Duration
	TelemetryTimeout time.Duration
	Pump             *Pump
	Log              *logrus.Entry

	startedAt time.Time
}

// NewMonitor constructs a Monitor over pump.
func NewMonitor(interval, telemetryTimeout time.Duration, pump *Pump, log *logrus.Entry) *Monitor {
	return &Monitor{
		Interval:         interval,
		TelemetryTimeout: telemetryTimeout,
		Pump:             pump,
		Log:              log.WithField("subsystem", "health"),
		startedAt:        time.Now(),
	}
}

// Run blocks until ctx is cancelled, checking telemetry liveness once per
// Interval. Stalls are logged, not fatal; the agent's reconnect loop
// handles actual transport loss.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last := m.Pump.LastEmit()
			if last.IsZero() {
				// Nothing emitted yet; only worry once the timeout has
				// passed since startup.
				if time.Since(m.startedAt) > m.TelemetryTimeout {
					m.Log.Warn("no telemetry emitted since startup")
				}
				continue
			}
			if stale := time.Since(last); stale > m.TelemetryTimeout {
				m.Log.WithField("stale_for", stale.Round(time.Second).String()).
					Warn("telemetry has stalled")
			}
		}
	}
}

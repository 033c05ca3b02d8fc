// Package audit emits one structured record per security-relevant event.
// Records go through the main process logger, tagged "subsystem=audit" and
// "audit=true"; there is no separate audit log file.
package audit

import (
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/sirupsen/logrus"
)

// Logger writes one structured log line per security-relevant operation.
// It is disabled by default; the agent enables it at startup only when
// config.Security.AuditLogging is set.
type Logger struct {
	enabled bool
	log     *logrus.Entry
}

// New builds an audit Logger writing through base, tagged with a
// "subsystem=audit" field the way every other component tags its own
// sub-logger.
func New(base *logrus.Logger, enabled bool) *Logger {
	return &Logger{
		enabled: enabled,
		log:     base.WithField("subsystem", "audit"),
	}
}

func (l *Logger) entry(requestID, operation string, allowed bool) *logrus.Entry {
	return l.log.WithFields(logrus.Fields{
		"audit":      true,
		"request_id": requestID,
		"operation":  operation,
		"allowed":    allowed,
		"source":     "control_plane",
		"ts":         time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (l *Logger) emit(e *logrus.Entry, allowed bool) {
	if allowed {
		e.Info("audit log")
	} else {
		e.Warn("audit log (denied)")
	}
}

// LogExecute records an Execute request outcome.
func (l *Logger) LogExecute(requestID, command, user string, allowed bool, exitCode *int32, duration time.Duration) {
	if !l.enabled {
		return
	}
	e := l.entry(requestID, "execute", allowed).WithField("command", command)
	if user != "" {
		e = e.WithField("user", user)
	}
	if exitCode != nil {
		e = e.WithField("exit_code", *exitCode)
	}
	if duration > 0 {
		e = e.WithField("duration_ms", duration.Milliseconds())
	}
	l.emit(e, allowed)
}

// LogFileOp records a file-I/O request outcome, formatting byte counts
// human-readably via bytefmt the way other byte-count-bearing log lines do
// elsewhere in the pack.
func (l *Logger) LogFileOp(requestID, operation, path string, allowed bool, bytes *uint64) {
	if !l.enabled {
		return
	}
	e := l.entry(requestID, operation, allowed).WithField("path", path)
	if bytes != nil {
		e = e.WithField("bytes", bytefmt.ByteSize(*bytes))
	}
	l.emit(e, allowed)
}

// LogLifecycle records a quiesce/thaw or other lifecycle operation outcome.
func (l *Logger) LogLifecycle(requestID, operation string, allowed bool) {
	if !l.enabled {
		return
	}
	l.emit(l.entry(requestID, operation, allowed), allowed)
}

// LogServiceOp records a systemd service-control operation outcome.
func (l *Logger) LogServiceOp(requestID, service, action string, allowed bool, result string) {
	if !l.enabled {
		return
	}
	e := l.entry(requestID, "service_control", allowed).
		WithField("service", service).
		WithField("action", action)
	if result != "" {
		e = e.WithField("result", result)
	}
	l.emit(e, allowed)
}

// LogProcessOp records a process-control operation outcome.
func (l *Logger) LogProcessOp(requestID, operation string, pid *int32, allowed bool) {
	if !l.enabled {
		return
	}
	e := l.entry(requestID, operation, allowed)
	if pid != nil {
		e = e.WithField("pid", *pid)
	}
	l.emit(e, allowed)
}

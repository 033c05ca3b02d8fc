//go:build unix

package main

import (
	"log/syslog"

	"github.com/sirupsen/logrus"
	lSyslog "github.com/sirupsen/logrus/hooks/syslog"
)

// attachSyslogHook wires a secondary syslog sink alongside the primary
// log output, so the same entries land in both.
func attachSyslogHook(base *logrus.Logger) {
	hook, err := lSyslog.NewSyslogHook("", "", syslog.LOG_INFO, "quantix-guest-agent")
	if err != nil {
		base.WithError(err).Warn("failed to attach syslog hook")
		return
	}
	base.AddHook(hook)
}

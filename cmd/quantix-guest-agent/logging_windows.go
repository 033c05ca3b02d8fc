//go:build windows

package main

import "github.com/sirupsen/logrus"

// attachSyslogHook has no Windows equivalent wired up yet (no local
// syslog daemon); syslog_enabled is simply ignored on this platform.
func attachSyslogHook(base *logrus.Logger) {}

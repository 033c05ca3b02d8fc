//go:build unix

package main

import "golang.org/x/sys/unix"

func applyHostname(name string) error {
	return unix.Sethostname([]byte(name))
}

//go:build windows

package main

import "errors"

func applyHostname(name string) error {
	return errors.New("setting the hostname is not implemented on Windows")
}

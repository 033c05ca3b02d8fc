//go:build windows

package handlers

import "os"

// ownerGroup: Windows has no POSIX uid/gid pair to resolve, so these stay
// empty.
func ownerGroup(info os.FileInfo) (owner, group string) {
	return "", ""
}

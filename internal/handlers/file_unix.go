//go:build unix

package handlers

import (
	"os"
	"os/user"
	"strconv"
	"syscall"
)

// ownerGroup resolves a file's UID/GID to names, falling back to the
// numeric id if the name lookup fails.
func ownerGroup(info os.FileInfo) (owner, group string) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return "", ""
	}

	uidStr := strconv.FormatUint(uint64(stat.Uid), 10)
	if u, err := user.LookupId(uidStr); err == nil {
		owner = u.Username
	} else {
		owner = uidStr
	}

	gidStr := strconv.FormatUint(uint64(stat.Gid), 10)
	if g, err := user.LookupGroupId(gidStr); err == nil {
		group = g.Name
	} else {
		group = gidStr
	}

	return owner, group
}

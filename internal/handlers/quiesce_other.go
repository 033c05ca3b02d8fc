//go:build !linux

package handlers

import "fmt"

// freezeMount/unfreezeMount have no portable equivalent outside Linux's
// FIFREEZE/FITHAW ioctls; other platforms reject Quiesce
// rather than silently no-op.
func freezeMount(mountPoint string) error {
	return fmt.Errorf("filesystem freeze is not implemented on this platform")
}

func unfreezeMount(mountPoint string) error {
	return fmt.Errorf("filesystem thaw is not implemented on this platform")
}

//go:build linux

package handlers

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// FIFREEZE and FITHAW are not exported by golang.org/x/sys/unix; these are
// the fixed Linux ioctl request codes from linux/fs.h (_IOWR('X', 119/120, int)).
const (
	fifreeze = 0xC0045877
	fithaw   = 0xC0045878
)

// freezeMount issues the Linux FIFREEZE ioctl on mountPoint.
func freezeMount(mountPoint string) error {
	f, err := os.Open(mountPoint)
	if err != nil {
		return fmt.Errorf("open %s: %w", mountPoint, err)
	}
	defer f.Close()

	if err := unix.IoctlSetInt(int(f.Fd()), fifreeze, 0); err != nil {
		return fmt.Errorf("FIFREEZE %s: %w", mountPoint, err)
	}
	return nil
}

// unfreezeMount issues FITHAW, the paired unfreeze ioctl.
func unfreezeMount(mountPoint string) error {
	f, err := os.Open(mountPoint)
	if err != nil {
		return fmt.Errorf("open %s: %w", mountPoint, err)
	}
	defer f.Close()

	if err := unix.IoctlSetInt(int(f.Fd()), fithaw, 0); err != nil {
		return fmt.Errorf("FITHAW %s: %w", mountPoint, err)
	}
	return nil
}

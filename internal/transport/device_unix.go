//go:build unix

package transport

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// charDevice wraps a virtio-serial port opened in non-blocking mode. Reads
// and writes are driven through a readiness loop (poll for
// readable/writable, attempt the syscall, retry on EAGAIN) rather than
// assuming the file-like seek/blocking semantics a regular file would
// offer.
type charDevice struct {
	mu sync.Mutex
	fd int
	f  *os.File
}

// OpenCharDevice opens path read+write and switches it to non-blocking
// mode, implementing the single-candidate leg of device discovery.
func OpenCharDevice(path string) (Duplex, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", path, err)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: set nonblock %s: %w", path, err)
	}

	f := os.NewFile(uintptr(fd), path)
	return &charDevice{fd: fd, f: f}, nil
}

func waitReadable(fd int) error {
	for {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n > 0 && fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			return nil
		}
	}
}

func waitWritable(fd int) error {
	for {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		n, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n > 0 && fds[0].Revents&(unix.POLLOUT|unix.POLLHUP|unix.POLLERR) != 0 {
			return nil
		}
	}
}

// Read implements io.Reader via the wait-then-syscall readiness loop. A
// zero-length read from a char device means the host closed its end, so
// it surfaces as EOF rather than an empty successful read.
func (c *charDevice) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(c.fd, p)
		if err == unix.EAGAIN {
			if werr := waitReadable(c.fd); werr != nil {
				return 0, werr
			}
			continue
		}
		if err != nil {
			return 0, err
		}
		if n == 0 && len(p) > 0 {
			return 0, io.EOF
		}
		return n, nil
	}
}

// Write implements io.Writer via the same readiness loop, driving partial
// writes to completion.
func (c *charDevice) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for total < len(p) {
		n, err := unix.Write(c.fd, p[total:])
		if err == unix.EAGAIN {
			if werr := waitWritable(c.fd); werr != nil {
				return total, werr
			}
			continue
		}
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (c *charDevice) Close() error {
	return c.f.Close()
}

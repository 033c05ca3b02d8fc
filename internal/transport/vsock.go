package transport

import (
	"fmt"
	"time"

	"github.com/mdlayher/vsock"
)

// HostCID is the well-known VSOCK context id of the hypervisor host.
const HostCID = 2

// DefaultVSockPort is the agent's default VSOCK port.
const DefaultVSockPort = 9443

// DialVSock connects to the host over VSOCK, used as the optional
// high-bandwidth path ahead of falling back to the character device.
func DialVSock(cid, port uint32, timeout time.Duration) (Duplex, error) {
	type result struct {
		conn *vsock.Conn
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		conn, err := vsock.Dial(cid, port, nil)
		ch <- result{conn, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("transport: vsock dial cid=%d port=%d: %w", cid, port, r.err)
		}
		return r.conn, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("transport: vsock dial cid=%d port=%d: timed out", cid, port)
	}
}

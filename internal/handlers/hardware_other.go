//go:build !linux

package handlers

import "fmt"

func linkSpeedMbps(ifaceName string) (int, error) {
	return 0, fmt.Errorf("link speed query not implemented on this platform")
}

//go:build linux

package handlers

import "github.com/safchain/ethtool"

// linkSpeedMbps reads the negotiated link speed for a NIC via the
// ETHTOOL_GSET ioctl.
func linkSpeedMbps(ifaceName string) (int, error) {
	et, err := ethtool.NewEthtool()
	if err != nil {
		return 0, err
	}
	defer et.Close()

	speed, err := et.CmdGetMapped(ifaceName)
	if err != nil {
		return 0, err
	}
	return int(speed["Speed"]), nil
}

// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux
// +build linux

package links

import "github.com/safchain/ethtool"

// fillEthtoolDetails adds driver and speed information to the details.
// Virtual links have no ethtool state; failures leave the fields empty.
func fillEthtoolDetails(details *Details) {
	eth, err := ethtool.NewEthtool()
	if err != nil {
		return
	}
	defer eth.Close()

	if driver, err := eth.DriverName(details.Name); err == nil {
		details.Driver = driver
	}
	if cmd, err := eth.CmdGet(&ethtool.EthtoolCmd{}, details.Name); err == nil {
		details.SpeedMb = cmd
	}
}

// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package brand provides centralized naming constants for the daemon.
// Keeping them in one place makes the product easy to rename or fork.
package brand

const (
	Name        = "AirQoS"
	LowerName   = "airqos"
	BinaryName  = "airqosd"
	ServiceName = "airqosd.service"
	Description = "Per-flow QoS policy dispatch daemon for wireless links"

	ConfigFileName   = "airqos.hcl"
	DefaultConfigDir = "/etc/airqos"
	DefaultRunDir    = "/run/airqos"
	DefaultLogDir    = "/var/log/airqos"

	ConfigEnvPrefix = "AIRQOS"

	Version = "0.1.0"
)

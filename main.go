// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command airqosd mediates application QoS policy requests onto
// wireless links. Applications open a websocket session against the
// daemon's API and ask for per-flow marking policies; the daemon
// assigns wire IDs, submits the policies to the link-layer control
// channel, and tracks them until the owning session goes away.
package main

import (
	"fmt"
	"os"

	"grimm.is/airqos/cmd"
	"grimm.is/airqos/internal/brand"
)

func main() {
	args := os.Args[1:]
	subcmd := ""
	if len(args) > 0 {
		subcmd = args[0]
		args = args[1:]
	}

	optional := func() string {
		if len(args) > 0 {
			return args[0]
		}
		return ""
	}

	var err error
	switch subcmd {
	case "start":
		err = cmd.RunStart(optional())
	case "run":
		err = cmd.RunDaemon(optional())
	case "stop":
		err = cmd.RunStop()
	case "validate":
		err = cmd.RunValidate(optional())
	case "dump":
		err = cmd.RunDump(optional())
	case "init-config":
		err = cmd.RunInitConfig(optional())
	case "version":
		cmd.RunVersion()
	case "", "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", subcmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Printf(`%s - %s

Usage: %s <command> [args]

Commands:
  start [config]        Start the daemon in the background
  run [config]          Run the daemon in the foreground
  stop                  Stop the background daemon
  validate [config]     Check a configuration file
  dump [config]         Print the running daemon's dispatch state
  init-config [path]    Write a configuration file with defaults
  version               Print version information

The default configuration file is %s.
`, brand.Name, brand.Description, brand.BinaryName, cmd.DefaultConfigPath())
}

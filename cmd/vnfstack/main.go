// Package main is the entry point for the vnfstack CLI.
//
// vnfstack provisions virtual network function environments: it registers
// images, networks and keypairs, boots the instances, and configures them
// with Ansible once they accept SSH sessions.
//
// Commands: deploy, clean, status, validate, exec, version.
//
// For detailed usage information, run:
//
//	vnfstack --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/vnfstack/cmd/vnfstack/commands"
	"github.com/imamik/vnfstack/cmd/vnfstack/handlers"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(handlers.ExitCode(err))
	}
}

// Package main provides the entry point for the kata-landlock CLI tool.
package main

import "github.com/bolinfest/kata-landlock/cmd/kata-landlock/cmd"

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	cmd.Execute(version, commit, date, builtBy)
}

package main

import (
	"os"

	"ratchetlink/cmd/ratchetlinkctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"cardlink/cmd/cardlinkd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/trylook/searchd/cmd/searchctl/commands"
	"github.com/trylook/searchd/internal/version"
)

func main() {
	commands.SetVersion(version.Version, version.Commit, version.Date)

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

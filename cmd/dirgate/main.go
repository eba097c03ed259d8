// Package main provides the entry point for the dirgate CLI.
package main

import (
	"fmt"
	"os"

	"github.com/dirgate/dirgate/cmd/dirgate/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

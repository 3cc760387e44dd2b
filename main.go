// The main package for the cmpscrape executable.
package main

import (
	"os"

	"github.com/seguimed/cmpscrape/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

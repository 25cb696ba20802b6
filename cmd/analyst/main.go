// Package main provides the entry point for the analyst CLI.
package main

import (
	"fmt"
	"os"

	"github.com/mshdtksk/sfguide-getting-started-with-cortex-analyst-main-local/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

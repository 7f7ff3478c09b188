// Command trireme is the entry point: build the cobra command tree, set
// the version string, and map a non-nil Execute error (connection
// failure, declined confirmation, or any other RunE error) to exit
// code 1.
package main

import (
	"fmt"
	"os"

	"github.com/fxlv/trireme/internal/cli"
)

var (
	version = "1.0.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "trireme: fatal: %v\n", r)
			os.Exit(1)
		}
	}()

	rootCmd := cli.BuildCLI()
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

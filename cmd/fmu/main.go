// Command fmu declares, validates and runs FMI 2.0 co-simulation slaves.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/fmu/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fmu:", err)
		os.Exit(cli.GetExitCode(err))
	}
}

// Command signalstore runs demo scenarios against the signal store and
// records, inspects and replays their action traces.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/signalstore/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}

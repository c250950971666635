// Command ordered keeps scoped records in a dense, gapless order.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/ordered/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}

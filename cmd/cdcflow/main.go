// Command cdcflow compiles CDC table specs into a SQL registry and keeps the
// dataflow document in sync with it.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/cdcflow/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		// Usage errors from cobra itself; command errors are already reported.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}

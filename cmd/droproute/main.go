package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/droproute/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		os.Exit(cli.ExitSuccess)
	}

	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		// Usage errors from cobra (unknown flag, wrong arg count).
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(exitErr.Code)
}

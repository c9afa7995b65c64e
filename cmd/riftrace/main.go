package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/riftrace/riftrace/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		code := 1
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.Code
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(code)
	}
}

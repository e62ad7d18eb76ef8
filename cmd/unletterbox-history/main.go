package main

import (
	"fmt"
	"os"

	"unletterbox/internal/exitcodes"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitcodes.ProcessingFailed)
	}
}

// Package main is the entry point for loadavg-manager.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Exit codes: 0 success, 1 failure, 130 when interrupted.
const exitInterrupted = 130

func main() {
	if err := Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Interrupted")
			os.Exit(exitInterrupted)
		}
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"docrot/internal/errors"
)

// Exit codes: rot findings are a distinct outcome from failure so CI can
// gate on them.
const (
	exitClean = 0
	exitRot   = 1
	exitFatal = 2
)

// exitCode is set by commands that complete but found rot.
var exitCode = exitClean

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := errors.HintFor(errors.CodeOf(err)); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(exitFatal)
	}
	os.Exit(exitCode)
}

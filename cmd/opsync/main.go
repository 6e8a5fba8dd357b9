// Package main provides the opsync CLI, a one-way migrator of Megaplan
// tasks into OpenProject work packages.
package main

import (
	"errors"
	"fmt"
	"os"
)

const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// errRunIncomplete marks a run that finished but left failed or aborted
// records behind.
var errRunIncomplete = errors.New("sync completed with failures")

// userError wraps configuration and input failures so main can map them to
// the user-error exit code.
type userError struct {
	err error
}

func (e *userError) Error() string { return e.err.Error() }
func (e *userError) Unwrap() error { return e.err }

func main() {
	os.Exit(execute())
}

func execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(os.Stderr, "Error:", err)

	var usrErr *userError
	if errors.As(err, &usrErr) {
		return exitUserError
	}
	return exitSysError
}

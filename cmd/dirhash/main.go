package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	dirhash "github.com/mattkeenan/dirhash/pkg"
)

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command with args and returns the process exit code
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := setupSignalHandler(context.Background(), stderr)
	defer stop()
	defer dirhash.SyncLogger()

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "dirhash: %v\n", err)
		var usage *usageError
		if errors.As(err, &usage) {
			fmt.Fprintf(stderr, "Try 'dirhash --help' for more information.\n")
			return exitUsage
		}
		return exitFailure
	}
	return exitOK
}

// usageError marks command line mistakes, reported with exit code 2
type usageError struct {
	err error
}

func (e *usageError) Error() string {
	return e.err.Error()
}

func (e *usageError) Unwrap() error {
	return e.err
}

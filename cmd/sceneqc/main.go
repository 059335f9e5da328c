// sceneqc validates primvar/topology consistency of composed scenes.
//
// Usage:
//
//	sceneqc check <scene> [--format text|markdown|json|jsonl|yaml] [--checks primvars,material-binding]
//	sceneqc history <scene> [--new]
//	sceneqc serve
//
// Exit status is 0 when every primitive passed or was skipped, 1 when any
// failed or could not be read, and 2 when the run itself could not complete.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitFatal  = 2
)

// errFindings signals a completed run whose report is not OK.
var errFindings = errors.New("scene has failing primitives")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and maps the outcome onto an exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errFindings):
		return exitFailed
	default:
		fmt.Fprintln(stderr, "error:", err)
		return exitFatal
	}
}

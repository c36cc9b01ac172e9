// awsx runs AWS SDK code examples from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/oklog/run"

	"github.com/yairfalse/awsx/internal/awserr"
)

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// execute runs one command and returns the process exit code. The command
// and the signal handler are actors of one run group: a signal cancels the
// command's context, and a finished command stops the handler.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a, err := newApp(stdin, stdout, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g run.Group
	g.Add(func() error {
		return root.ExecuteContext(ctx)
	}, func(error) {
		cancel()
	})
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	err = g.Run()
	if err == nil {
		return 0
	}

	var sig run.SignalError
	if errors.As(err, &sig) {
		a.log.Info().Str("signal", sig.Signal.String()).Msg("interrupted")
		return 130
	}

	_, _ = fmt.Fprintf(stderr, "Error: %s\n", awserr.Describe(err))
	return 1
}

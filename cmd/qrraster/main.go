package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matzehuels/qrraster/internal/cli"
	qrerrors "github.com/matzehuels/qrraster/pkg/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130) // Standard shell convention for SIGINT
		}
		fmt.Fprintln(os.Stderr, "error:", qrerrors.UserMessage(err))
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context) error {
	var verbose bool

	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	// The level is only known once flags are parsed.
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if verbose {
			c.SetLogLevel(cli.LogDebug)
		}
		return nil
	}

	return root.ExecuteContext(ctx)
}

// exitCode maps error codes to distinct exit statuses for scripts:
// 2 for invalid input, 3 for output failures, 1 otherwise.
func exitCode(err error) int {
	switch qrerrors.GetCode(err) {
	case qrerrors.ErrCodeInvalidInput, qrerrors.ErrCodeInvalidFormat,
		qrerrors.ErrCodeInvalidLevel, qrerrors.ErrCodeInvalidPath:
		return 2
	case qrerrors.ErrCodeSinkWrite, qrerrors.ErrCodeOutOfMemory:
		return 3
	default:
		return 1
	}
}

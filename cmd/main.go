package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tabx/internal/shared"
)

// Exit codes
const (
	exitError    = 1
	exitSource   = 2
	exitAuth     = 3
	exitPlaylist = 4
	exitAborted  = 5
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(runner).Run(ctx, os.Args); err != nil {
		logger.Error("tabx failed", "error", err)
		stop()
		cli.HandleExitCoder(cli.Exit("", exitCode(err)))
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, shared.ErrRunAborted):
		return exitAborted
	case errors.Is(err, shared.ErrSourceAuth),
		errors.Is(err, shared.ErrSourceNotFound),
		errors.Is(err, shared.ErrSourceUnavailable):
		return exitSource
	case errors.Is(err, shared.ErrAuthFailed):
		return exitAuth
	case errors.Is(err, shared.ErrPlaylistFailure):
		return exitPlaylist
	default:
		return exitError
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/jamfctl/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(cli.DefaultConfig())
	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, cli.ErrFailures) {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}
	return cli.ExitCode(err)
}

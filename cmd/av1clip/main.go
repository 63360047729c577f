package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"av1clip/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			details := services.Details(err)
			fmt.Fprintf(os.Stderr, "Error (%s): %s\n", details.Kind, details.Message)
		}
		os.Exit(services.ExitCode(err))
	}
}

// Command newsguard is the command-line client for the misinformation-detection service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ppiankov/newsguard/internal/cli"
	"github.com/ppiankov/newsguard/internal/render"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", render.ErrorHint(err))
		stop()
		os.Exit(1)
	}
}

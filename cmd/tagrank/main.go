// Command tagrank rates competitors from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/tagrank/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.New(os.Stdout).Run(ctx, os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "tagrank:", err)
		stop()
		os.Exit(1)
	}
}

// Command assistantctl builds index artifacts, talks to the assistant over a
// local catalog and issues tenant tokens.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		failure("%v", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/growthdesk/internal/growthctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := growthctl.NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

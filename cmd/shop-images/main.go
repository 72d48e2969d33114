package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/AD7six/shop-images/internal/commands/root"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.NewRootCmd().ExecuteContext(ctx)
	stop()

	cobra.CheckErr(err)
}

// cmd/mtgmeta/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/law-makers/mtgmeta/internal/cli"
)

func main() {
	// Cancel in-flight scrapes on interrupt; batches return what they collected
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}

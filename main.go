package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Scalingo/sclng-repo-search/cli"
	log "github.com/sirupsen/logrus"
)

func main() {
	// kill default send syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("command failed")
		stop()
		os.Exit(1)
	}
}

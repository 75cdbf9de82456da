package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/netology-group/iam/internal/cmd/migrate"
	"github.com/netology-group/iam/internal/cmd/seed"
	"github.com/netology-group/iam/internal/cmd/serve"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "iam",
		Usage: "Identity and access management service",
		Commands: []*cli.Command{
			serve.Command(),
			migrate.Command(),
			seed.Command(),
		},
	}
	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

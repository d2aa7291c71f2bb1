package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/filevault/internal/client/cli"
	"github.com/dmitrijs2005/filevault/internal/client/config"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	app.Run(ctx)

}

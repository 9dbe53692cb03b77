// Command worker runs the crawler/classifier engine: the discovery,
// inspection, deferral and admin-refresh loops described in spec §4.8.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hadsh/spamhunter/internal/crawler"
	"github.com/hadsh/spamhunter/internal/setup"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := setup.InitializeApp(ctx)
	if err != nil {
		return err
	}
	defer app.Cleanup()

	c, err := crawler.New(ctx, crawler.Dependencies{
		Store:     app.Store,
		API:       app.API,
		Client:    app.Client,
		Suffix:    app.Suffix,
		Tokenizer: app.Tokenizer,
		Hasher:    app.Hasher,
		Traits:    app.Traits,
		Metrics:   app.Metrics,
		Config:    app.Config.Crawler,
		Logger:    app.Logger,
	})
	if err != nil {
		return err
	}

	app.Logger.Info("starting crawler")

	c.Start(ctx)

	app.Logger.Info("crawler stopped")

	return nil
}

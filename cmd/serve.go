/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"lfreader/server"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the feed reader API",
		Description: `Starts the lfreader HTTP server.

		Feeds, entries and tags are served as JSON under /api and
		Prometheus metrics under /metrics.`,
		Flags: commonFlags(
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Address to listen on, overrides the configuration file",
				EnvVars: []string{"LFREADER_ADDR"},
			},
		),
		Action: func(ctx *cli.Context) error {
			store, cfg, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			addr := cfg.Server.Addr
			if ctx.String("addr") != "" {
				addr = ctx.String("addr")
			}

			app := server.Server(&server.ServerConfig{Store: store})

			// Graceful shutdown
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigChan
				log.Info("Gracefully shutting down...")
				if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
					log.WithError(err).Error("Error shutting down server")
				}
			}()

			log.WithField("addr", addr).Info("Starting server")
			if err := app.Listen(addr); err != nil {
				return err
			}

			log.Info("Server stopped")
			return nil
		},
	}
}

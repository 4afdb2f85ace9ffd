/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"lfreader/config"
	"lfreader/db"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "lfreader",
		Usage: "A self hosted feed reader",
		Description: `lfreader keeps RSS and Atom feeds, their entries and your
		read and starred marks in a single SQLite database.

		Feeds are fetched or imported with the fetch and import commands and
		served as JSON by the serve command.

		Flags can generally be set via environment variables, e.g.:

		--database => LFREADER_DATABASE=feeds.db
		--config => LFREADER_CONFIG=lfreader.toml
		`,
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			fetchCmd(),
			importCmd(),
			feedsCmd(),
			entriesCmd(),
			tagCmd(),
			statusCmd(),
			deleteCmd(),
			tidyCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

// commonFlags are taken by every command that touches the database
func commonFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "TOML configuration file",
			EnvVars: []string{"LFREADER_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "database",
			Aliases: []string{"d"},
			Usage:   "SQLite database file location, overrides the configuration file",
			EnvVars: []string{"LFREADER_DATABASE"},
		},
	}, extra...)
}

// Execute runs the app with the process arguments
func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.WithError(err).Fatal("lfreader failed")
	}
}

// loadConfig reads the configuration file if one is given, applies the
// --database override and sets up logging
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := ctx.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if database := ctx.String("database"); database != "" {
		cfg.Database.Path = database
	}

	if err := setupLogging(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg config.TomlLog) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// openStore loads the configuration and opens the store it points at
func openStore(ctx *cli.Context) (*db.Store, *config.Config, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}

	opts, err := cfg.StoreOptions()
	if err != nil {
		return nil, nil, err
	}

	store, err := db.Open(ctx.Context, opts)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"lfreader/ingest"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func fetchCmd() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch feeds and store their entries",
		ArgsUsage: "<url>...",
		Description: `Downloads each feed and upserts it with its entries. The URL
		is the feed id. Read and starred marks of known entries are kept.`,
		Flags: commonFlags(),
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() == 0 {
				return fmt.Errorf("at least one feed URL is required")
			}

			store, cfg, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			ingester := ingest.New(store, cfg.Fetch.UserAgent, cfg.Fetch.Timeout.Duration)

			// Keep going when one feed fails, report all failures at the end
			var errs []error
			for _, url := range ctx.Args().Slice() {
				result, err := ingester.FetchURL(ctx.Context, url)
				if err != nil {
					log.WithFields(log.Fields{
						"url":   url,
						"error": err,
					}).Error("Failed to fetch feed")
					errs = append(errs, err)
					continue
				}
				fmt.Printf("%s: %d entries\n", result.Feed, result.Entries)
			}
			return errors.Join(errs...)
		},
	}
}

func importCmd() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a feed document from a file",
		ArgsUsage: "<file>",
		Flags: commonFlags(
			&cli.StringFlag{
				Name:     "feed",
				Usage:    "Id to store the feed under",
				Required: true,
			},
		),
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() != 1 {
				return fmt.Errorf("exactly one file is required")
			}

			file, err := os.Open(ctx.Args().First())
			if err != nil {
				return err
			}
			defer file.Close()

			store, cfg, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			ingester := ingest.New(store, cfg.Fetch.UserAgent, cfg.Fetch.Timeout.Duration)
			result, err := ingester.ImportReader(ctx.Context, ctx.String("feed"), file)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d entries\n", result.Feed, result.Entries)
			return nil
		},
	}
}

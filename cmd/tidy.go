/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Tidy up the database",
		Description: `Tidy up the database by removing entries that are old.

		Removes entries that are read, not starred and older than the given
		number of days. This is to keep the database size down.`,
		Flags: commonFlags(
			&cli.IntFlag{
				Name:    "days",
				Value:   90,
				Usage:   "Remove read entries older than this many days",
				EnvVars: []string{"LFREADER_TIDY_DAYS"},
			},
		),
		Action: func(ctx *cli.Context) error {
			days := ctx.Int("days")
			if days < 0 {
				return fmt.Errorf("days must not be negative")
			}

			store, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			before := time.Now().AddDate(0, 0, -days)
			deleted, err := store.Tidy(ctx.Context, before)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d entries older than %s\n", deleted, before.Format(time.DateOnly))
			return nil
		},
	}
}

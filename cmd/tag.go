/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"lfreader/models"

	"github.com/cqroot/prompt"
	"github.com/urfave/cli/v2"
)

func tagCmd() *cli.Command {
	return &cli.Command{
		Name:  "tag",
		Usage: "Add or remove feed tags",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Tag a feed",
				ArgsUsage: "<feed> <name>",
				Flags:     commonFlags(),
				Action: func(ctx *cli.Context) error {
					return changeTag(ctx, true)
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove a tag from a feed",
				ArgsUsage: "<feed> <name>",
				Flags:     commonFlags(),
				Action: func(ctx *cli.Context) error {
					return changeTag(ctx, false)
				},
			},
			{
				Name:  "list",
				Usage: "List tags with their number of feeds",
				Flags: commonFlags(),
				Action: func(ctx *cli.Context) error {
					store, _, err := openStore(ctx)
					if err != nil {
						return err
					}
					defer store.Close()

					tags, err := store.ListTags(ctx.Context)
					if err != nil {
						return err
					}
					for _, tag := range tags {
						fmt.Printf("%s\t%d\n", tag.Name, tag.Feeds)
					}
					return nil
				},
			},
		},
	}
}

func changeTag(ctx *cli.Context, add bool) error {
	if ctx.NArg() != 2 {
		return fmt.Errorf("expected <feed> <name>")
	}
	feed, name := ctx.Args().Get(0), ctx.Args().Get(1)

	store, _, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if add {
		return store.AddTag(ctx.Context, feed, name)
	}
	return store.RemoveTag(ctx.Context, feed, name)
}

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Mark an entry read, unread, starred or unstarred",
		ArgsUsage: "<feed> <entry>",
		Description: `Only the flags given are changed, e.g.:

		lfreader status --read https://example.com/feed.xml urn:entry:1
		lfreader status --starred=false https://example.com/feed.xml urn:entry:1`,
		Flags: commonFlags(
			&cli.BoolFlag{
				Name:  "read",
				Usage: "Set or clear the read flag",
			},
			&cli.BoolFlag{
				Name:  "starred",
				Usage: "Set or clear the starred flag",
			},
		),
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() != 2 {
				return fmt.Errorf("expected <feed> <entry>")
			}
			feed, id := ctx.Args().Get(0), ctx.Args().Get(1)

			store, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			var status models.Status
			changed := false
			for _, flag := range []models.Flag{models.FlagRead, models.FlagStarred} {
				name := flag.String()
				if !ctx.IsSet(name) {
					continue
				}
				if status, err = store.SetEntryStatus(ctx.Context, id, feed, flag, ctx.Bool(name)); err != nil {
					return err
				}
				changed = true
			}
			if !changed {
				return fmt.Errorf("nothing to change, give --read or --starred")
			}

			fmt.Printf("%s %s: read=%t starred=%t\n", feed, id, status.IsRead(), status.IsStarred())
			return nil
		},
	}
}

func deleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete feeds with their entries and tags",
		ArgsUsage: "<feed>...",
		Flags: commonFlags(
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Do not ask for confirmation",
			},
		),
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() == 0 {
				return fmt.Errorf("at least one feed id is required")
			}
			ids := ctx.Args().Slice()

			if !ctx.Bool("yes") {
				answer, err := prompt.New().
					Ask(fmt.Sprintf("Delete %d feed(s) with all their entries?", len(ids))).
					Choose([]string{"No", "Yes"})
				if err != nil {
					return err
				}
				if answer != "Yes" {
					fmt.Println("Aborted")
					return nil
				}
			}

			store, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			deleted, err := store.DeleteFeeds(ctx.Context, ids...)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d of %d feeds\n", deleted, len(ids))
			return nil
		},
	}
}

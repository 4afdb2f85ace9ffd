/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strings"

	"lfreader/db"
	"lfreader/models"

	"github.com/goccy/go-json"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
)

var jsonFlag = &cli.BoolFlag{
	Name:  "json",
	Usage: "Print JSON instead of text",
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func feedsCmd() *cli.Command {
	return &cli.Command{
		Name:  "feeds",
		Usage: "List feeds",
		Flags: commonFlags(
			&cli.StringFlag{
				Name:  "tag",
				Usage: "Only list feeds carrying this tag",
			},
			jsonFlag,
		),
		Action: func(ctx *cli.Context) error {
			store, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			var feeds []models.Feed
			if tag := ctx.String("tag"); tag != "" {
				feeds, err = store.GetFeedsByTag(ctx.Context, tag)
			} else {
				feeds, err = store.GetFeeds(ctx.Context)
			}
			if err != nil {
				return err
			}

			if ctx.Bool("json") {
				return printJSON(feeds)
			}
			for _, feed := range feeds {
				unread := lo.CountBy(feed.Entries, func(e models.Entry) bool { return !e.Status.IsRead() })
				fmt.Printf("%s\t%s\t%d/%d unread\t[%s]\n",
					feed.Id, deref(feed.Title), unread, len(feed.Entries), strings.Join(feed.Tags, ", "))
			}
			return nil
		},
	}
}

func entriesCmd() *cli.Command {
	return &cli.Command{
		Name:  "entries",
		Usage: "List entries, newest first",
		Flags: commonFlags(
			&cli.StringSliceFlag{
				Name:  "feed",
				Usage: "Only list entries of these feeds",
			},
			&cli.StringFlag{
				Name:  "tag",
				Usage: "Only list entries of feeds carrying this tag",
			},
			&cli.BoolFlag{
				Name:  "unread",
				Usage: "Only list unread entries",
			},
			&cli.BoolFlag{
				Name:  "starred",
				Usage: "Only list starred entries",
			},
			&cli.IntFlag{
				Name:  "limit",
				Value: 20,
				Usage: "Number of entries to list, 0 for all",
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Number of entries to skip",
			},
			jsonFlag,
		),
		Action: func(ctx *cli.Context) error {
			store, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.GetEntries(ctx.Context, db.EntryQuery{
				FeedIDs:     ctx.StringSlice("feed"),
				Tag:         ctx.String("tag"),
				UnreadOnly:  ctx.Bool("unread"),
				StarredOnly: ctx.Bool("starred"),
				Limit:       ctx.Int("limit"),
				Offset:      ctx.Int("offset"),
			})
			if err != nil {
				return err
			}

			if ctx.Bool("json") {
				return printJSON(entries)
			}
			for _, entry := range entries {
				marks := ""
				if !entry.Status.IsRead() {
					marks += "*"
				}
				if entry.Status.IsStarred() {
					marks += "★"
				}
				title := ""
				if entry.Title != nil {
					title = entry.Title.Content
				}
				published := ""
				if entry.Published != nil {
					published = entry.Published.Format("2006-01-02")
				}
				fmt.Printf("%-2s %s\t%s\t%s\t%s\n", marks, published, entry.Feed, entry.Id, title)
			}
			return nil
		},
	}
}

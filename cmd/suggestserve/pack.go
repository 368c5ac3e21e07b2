package main

import (
	"context"
	"fmt"

	"github.com/bastiangx/suggestserve/pkg/catalog"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

func packCommand() *cli.Command {
	return &cli.Command{
		Name:      "pack",
		Usage:     "Convert a JSON product export into a msgpack snapshot",
		ArgsUsage: "<in.json> <out.msgpack>",
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() != 2 {
				return cli.Exit("pack needs <in.json> <out.msgpack>", 2)
			}
			in, out := c.Args().Get(0), c.Args().Get(1)

			n, err := catalog.Pack(in, out)
			if err != nil {
				return err
			}
			fmt.Printf("Packed %d products into %s\n", n, out)
			return nil
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Upload the catalog snapshot to Meilisearch and set up the index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "snapshot",
				Usage: "Snapshot to upload (default catalog.snapshot from config)",
			},
			&cli.IntFlag{
				Name:  "batch",
				Usage: "Documents per upload batch",
				Value: 1000,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			store, err := loadStore(c)
			if err != nil {
				return err
			}
			cfg := store.Config()

			snapshot := c.String("snapshot")
			if snapshot == "" {
				snapshot = cfg.Catalog.Snapshot
			}
			path := resolveSnapshot(snapshot, store.Path())
			products, _, err := catalog.LoadSnapshot(path)
			if err != nil {
				return err
			}

			client := catalog.NewMeiliClient(cfg.Catalog.MeiliHost, cfg.Catalog.MeiliAPIKey)
			indexer := catalog.NewMeiliIndexer(client, cfg.Catalog.MeiliIndex, int(c.Int("batch")))

			log.Debugf("Setting up index %s at %s", cfg.Catalog.MeiliIndex, cfg.Catalog.MeiliHost)
			if err := indexer.EnsureIndex(cfg.Search.WhereToSearch); err != nil {
				return err
			}
			n, err := indexer.IndexProducts(products)
			if err != nil {
				return fmt.Errorf("imported %d of %d products: %w", n, len(products), err)
			}
			fmt.Printf("Imported %d products from %s into %s\n", n, path, cfg.Catalog.MeiliIndex)
			return nil
		},
	}
}

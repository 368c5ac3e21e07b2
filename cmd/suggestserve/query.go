package main

import (
	"context"
	"os"
	"strings"

	"github.com/bastiangx/suggestserve/internal/cli"
	"github.com/bastiangx/suggestserve/pkg/suggest"
	ucli "github.com/urfave/cli/v3"
)

func queryCommand() *ucli.Command {
	return &ucli.Command{
		Name:      "query",
		Usage:     "Print suggestions for a term, or start an interactive prompt",
		ArgsUsage: "<term>",
		Flags: []ucli.Flag{
			&ucli.BoolFlag{
				Name:    "interactive",
				Aliases: []string{"i"},
				Usage:   "Read terms from stdin until EOF",
			},
		},
		Action: func(ctx context.Context, c *ucli.Command) error {
			term := strings.Join(c.Args().Slice(), " ")
			interactive := c.Bool("interactive")
			if term == "" && !interactive {
				return ucli.Exit("query needs a <term> or -i", 2)
			}

			store, err := loadStore(c)
			if err != nil {
				return err
			}
			cfg := store.Config()

			backend, release, err := openCatalog(cfg, store.Path())
			if err != nil {
				return err
			}
			defer release()

			svc := suggest.NewService(backend, store)
			h := cli.NewInputHandler(svc, os.Stdin, os.Stdout, cfg.Server.CatalogTimeout.Duration)
			if interactive {
				return h.Start(ctx)
			}
			return h.Query(ctx, term)
		},
	}
}

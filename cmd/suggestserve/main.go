// Copyright 2025 The SuggestServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the product suggestion server and its CLI tools.

SuggestServe answers the live search dropdown of a shop: a client sends the
partial term typed so far and receives a small, ranked list of matching
products with title, link, image, price and whether the product can be added
to the cart directly.

# Usage

Start the HTTP server with the default config:

	suggestserve serve

Use a custom config file and enable debug logs:

	suggestserve --config ./config.toml --debug serve

Look a term up without starting the server, or open an interactive prompt:

	suggestserve query shirt
	suggestserve query -i

Build a catalog snapshot from a JSON export, or push it to Meilisearch:

	suggestserve pack products.json catalog.msgpack
	suggestserve import

# Configuration

Runtime configuration lives in a TOML file, created with defaults when it
does not exist:

	[server]
	addr = ":8080"
	namespace = "premmerce-search/v1"
	catalog_timeout = "2s"

	[search]
	min_to_search = 3
	result_num = 6
	where_to_search = ["title", "sku"]

	[store]
	hide_out_of_stock = false

	[catalog]
	backend = "memory"
	snapshot = "catalog.msgpack"

	[cache]
	enabled = false
	redis_url = "redis://127.0.0.1:6379/0"

The server watches the file and applies changes without restart; SIGHUP
forces a reload and a rebuild of the catalog. The listen address, the
namespace and the rate limit are only read at startup.

# Catalogs

The memory backend loads a msgpack snapshot into a Patricia trie and ranks
title prefix matches first. The meilisearch backend delegates matching and
ranking to a Meilisearch index. Either one can be wrapped by a Redis result
cache.

# Command Line Flags

	--config string
	    Path of the TOML config (default ~/.config/suggestserve/config.toml)
	--debug
	    Enable debug logging with timestamps
*/
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

const (
	Version = "0.3.0"
	AppName = "suggestserve"
	gh      = "https://github.com/bastiangx/suggestserve"
)

// main wires the command tree. The commands own the flow; main does not
// implement logic for them.
func main() {
	app := &cli.Command{
		Name:  AppName,
		Usage: "Serves product suggestions for live search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file path",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			queryCommand(),
			packCommand(),
			importCommand(),
			versionCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

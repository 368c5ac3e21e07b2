package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"syscall"

	"github.com/bastiangx/suggestserve/internal/utils"
	"github.com/bastiangx/suggestserve/pkg/catalog"
	"github.com/bastiangx/suggestserve/pkg/config"
	"github.com/bastiangx/suggestserve/pkg/server"
	"github.com/bastiangx/suggestserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP suggestion server",
		Action: func(ctx context.Context, c *cli.Command) error {
			store, err := loadStore(c)
			if err != nil {
				return err
			}
			return serve(ctx, store)
		},
	}
}

// liveCatalog rebuilds the catalog when its settings change.
type liveCatalog struct {
	mu      sync.Mutex
	swap    *catalog.Swappable
	release func()
	applied catalogSettings
	path    string
	builds  int
}

// catalogSettings are the config parts a catalog is built from.
type catalogSettings struct {
	Catalog config.CatalogConfig
	Cache   config.CacheConfig
	Fields  []string
}

func settingsOf(cfg *config.Config) catalogSettings {
	return catalogSettings{Catalog: cfg.Catalog, Cache: cfg.Cache, Fields: cfg.Search.WhereToSearch}
}

func newLiveCatalog(cfg *config.Config, path string) (*liveCatalog, error) {
	backend, release, err := openCatalog(cfg, path)
	if err != nil {
		return nil, err
	}
	return &liveCatalog{
		swap:    catalog.NewSwappable(backend),
		release: release,
		applied: settingsOf(cfg),
		path:    path,
	}, nil
}

// rebuild swaps in a catalog built from cfg. Unless force is set it only
// does so when the catalog settings changed. On error the current one stays.
func (lc *liveCatalog) rebuild(cfg *config.Config, force bool) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	next := settingsOf(cfg)
	if !force && reflect.DeepEqual(next, lc.applied) {
		return
	}

	backend, release, err := openCatalog(cfg, lc.path)
	if err != nil {
		log.Errorf("Keeping current catalog, rebuild failed: %v", err)
		return
	}
	lc.swap.Swap(backend)
	lc.release()
	lc.release = release
	lc.applied = next
	lc.builds++
	log.Info("Catalog rebuilt", "backend", cfg.Catalog.Backend, "cache", cfg.Cache.Enabled)
}

// generation counts successful rebuilds.
func (lc *liveCatalog) generation() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.builds
}

func (lc *liveCatalog) close() {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.release()
}

// serve runs the server, the config watcher and the SIGHUP handler until
// SIGINT or SIGTERM.
func serve(ctx context.Context, store *config.Store) error {
	cfg := store.Config()

	live, err := newLiveCatalog(cfg, store.Path())
	if err != nil {
		return err
	}
	defer live.close()

	store.OnReload = func(next *config.Config) {
		live.rebuild(next, false)
	}

	svc := suggest.NewService(live.swap, store)
	srv := server.NewServer(svc, store)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gCtx)
	})

	g.Go(func() error {
		if err := store.Watch(gCtx); err != nil {
			log.Warnf("Config watcher disabled: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-hup:
				log.Info("Received SIGHUP, reloading configuration...")
				before := live.generation()
				if err := store.Reload(); err != nil {
					log.Errorf("Failed to reload configuration: %v", err)
					continue
				}
				// the snapshot file may have changed even if the config did not
				if live.generation() == before {
					live.rebuild(store.Config(), true)
				}
			}
		}
	})

	showStartupInfo(cfg, store.Path())

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	log.Info("Bye")
	return nil
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(cfg *config.Config, configPath string) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("===============")
	println(" SuggestServe ")
	println("===============")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("config: ( %s )", utils.GetAbsolutePath(configPath))
	log.Infof("listening: ( %s )", cfg.Server.Addr)
	log.Infof("catalog: ( %s )", cfg.Catalog.Backend)
	log.Info("status: ready")
	println("===============")
	println("Press Ctrl+C to exit, send SIGHUP to reload")

	log.SetLevel(currentLevel)
}

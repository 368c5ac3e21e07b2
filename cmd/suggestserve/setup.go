package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bastiangx/suggestserve/internal/logger"
	"github.com/bastiangx/suggestserve/internal/utils"
	"github.com/bastiangx/suggestserve/pkg/catalog"
	"github.com/bastiangx/suggestserve/pkg/config"
	"github.com/bastiangx/suggestserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

// loadStore resolves, loads and validates the config named by --config.
func loadStore(c *cli.Command) (*config.Store, error) {
	debug := c.Bool("debug")
	logger.Setup(log.WarnLevel, debug)

	path := c.String("config")
	if path == "" {
		p, err := config.GetDefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to determine config path: %w", err)
		}
		path = p
	}
	log.Debugf("Using config file: (%s)", path)

	cfg, err := config.InitConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	logger.Setup(cfg.LogLevel(), debug)
	return config.NewStore(cfg, path), nil
}

// resolveSnapshot finds the snapshot next to the config file first, then
// in the usual config and executable dirs.
func resolveSnapshot(snapshot, configPath string) string {
	if snapshot == "" || filepath.IsAbs(snapshot) {
		return snapshot
	}
	if configPath != "" {
		if candidate := filepath.Join(filepath.Dir(configPath), snapshot); utils.FileExists(candidate) {
			return candidate
		}
	}
	pr, err := utils.NewPathResolver()
	if err != nil {
		log.Warnf("Path resolver unavailable: %v", err)
		return snapshot
	}
	return pr.ResolveFile(snapshot)
}

// openCatalog builds the configured backend, wrapped by the Redis cache
// when enabled. The returned func releases its connections.
func openCatalog(cfg *config.Config, configPath string) (suggest.Catalog, func(), error) {
	var backend suggest.Catalog
	var source string

	switch cfg.Catalog.Backend {
	case config.BackendMeili:
		client := catalog.NewMeiliClient(cfg.Catalog.MeiliHost, cfg.Catalog.MeiliAPIKey)
		backend = catalog.NewMeili(client.Index(cfg.Catalog.MeiliIndex), cfg.Search.WhereToSearch)
		source = cfg.Catalog.MeiliHost + "/" + cfg.Catalog.MeiliIndex
		log.Debugf("Using meilisearch index %s at %s", cfg.Catalog.MeiliIndex, cfg.Catalog.MeiliHost)
	default:
		path := resolveSnapshot(cfg.Catalog.Snapshot, configPath)
		products, header, err := catalog.LoadSnapshot(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load catalog snapshot: %w", err)
		}
		idx := catalog.NewIndex(products, cfg.Search.WhereToSearch)
		log.Debug("Memory catalog ready", "snapshot", path, "stats", idx.Stats())
		backend = idx
		source = header.Identity()
	}

	release := func() {}
	if cfg.Cache.Enabled {
		client, err := catalog.NewRedisClient(cfg.Cache.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid cache.redis_url: %w", err)
		}
		backend = catalog.NewCached(backend, client, cfg.Cache.TTL.Duration, cachePrefix(cfg, source))
		release = func() {
			if err := client.Close(); err != nil {
				log.Warnf("Failed to close redis client: %v", err)
			}
		}
		log.Debugf("Result cache enabled, ttl=%v", cfg.Cache.TTL.Duration)
	}

	return backend, release, nil
}

// cachePrefix scopes cache keys to the backend, its data build and the
// searched fields, so a rebuild never serves results of the previous one.
func cachePrefix(cfg *config.Config, source string) string {
	prefix := cfg.Cache.Prefix
	if prefix == "" {
		prefix = catalog.DefaultCachePrefix
	}
	fields := strings.Join(catalog.SanitizeFields(cfg.Search.WhereToSearch), ",")
	return prefix + catalog.CacheScope(cfg.Catalog.Backend, source, fields) + ":"
}

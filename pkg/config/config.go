/*
Package config manages TOML config for SuggestServe.

The file is created with defaults when missing. When strict decoding fails,
typed values are recovered section by section and everything else keeps its
default, so a single typo never takes the service down.
*/
package config

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bastiangx/suggestserve/internal/utils"
	"github.com/bastiangx/suggestserve/pkg/suggest"
	"github.com/charmbracelet/log"
)

// DefaultFileName is the config file name inside the config dir.
const DefaultFileName = "config.toml"

const (
	BackendMemory = "memory"
	BackendMeili  = "meilisearch"
)

// Config holds the entire config structure
type Config struct {
	Log     LogConfig     `toml:"log"`
	Server  ServerConfig  `toml:"server"`
	Search  SearchConfig  `toml:"search"`
	Store   StoreConfig   `toml:"store"`
	Catalog CatalogConfig `toml:"catalog"`
	Cache   CacheConfig   `toml:"cache"`
}

// LogConfig sets the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `toml:"level"`
}

// ServerConfig has HTTP related options.
type ServerConfig struct {
	Addr              string   `toml:"addr"`
	Namespace         string   `toml:"namespace"`
	CatalogTimeout    Duration `toml:"catalog_timeout"`
	ReadHeaderTimeout Duration `toml:"read_header_timeout"`
	ShutdownTimeout   Duration `toml:"shutdown_timeout"`
	// RateLimit is the allowed search requests per second per client IP. 0 disables it.
	RateLimit int `toml:"rate_limit"`
	RateBurst int `toml:"rate_burst"`
	// TrustedProxies lists the CIDRs whose X-Forwarded-For is believed.
	// Empty means the client IP is always the peer address.
	TrustedProxies []string `toml:"trusted_proxies"`
}

// SearchConfig holds the suggestion tunables.
type SearchConfig struct {
	MinToSearch        int      `toml:"min_to_search"`
	ResultNum          int      `toml:"result_num"`
	WhereToSearch      []string `toml:"where_to_search"`
	SearchSelector     string   `toml:"search_selector"`
	ForceProductSearch bool     `toml:"force_product_search"`
	OutOfStock         *bool    `toml:"out_of_stock,omitempty"`
	ShowAllMessage     string   `toml:"show_all_message"`
	CustomCSS          string   `toml:"custom_css"`
	// AutocompleteFields are extra input selectors the widget attaches to.
	AutocompleteFields []string `toml:"autocomplete_fields"`
}

// StoreConfig mirrors store wide settings.
type StoreConfig struct {
	HideOutOfStock bool `toml:"hide_out_of_stock"`
}

// CatalogConfig selects and configures the catalog backend.
type CatalogConfig struct {
	Backend     string `toml:"backend"`
	Snapshot    string `toml:"snapshot"`
	MeiliHost   string `toml:"meili_host"`
	MeiliAPIKey string `toml:"meili_api_key"`
	MeiliIndex  string `toml:"meili_index"`
}

// CacheConfig enables the Redis result cache.
type CacheConfig struct {
	Enabled  bool     `toml:"enabled"`
	RedisURL string   `toml:"redis_url"`
	TTL      Duration `toml:"ttl"`
	Prefix   string   `toml:"prefix"`
}

// Duration is a time.Duration written as a string like "2s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "warn"},
		Server: ServerConfig{
			Addr:              ":8080",
			Namespace:         "premmerce-search/v1",
			CatalogTimeout:    Duration{2 * time.Second},
			ReadHeaderTimeout: Duration{5 * time.Second},
			ShutdownTimeout:   Duration{10 * time.Second},
		},
		Search: SearchConfig{
			MinToSearch:    suggest.DefaultMinToSearch,
			ResultNum:      suggest.DefaultResultNum,
			WhereToSearch:  []string{"title"},
			ShowAllMessage: "All search results",
		},
		Catalog: CatalogConfig{
			Backend:    BackendMemory,
			Snapshot:   "catalog.msgpack",
			MeiliHost:  "http://127.0.0.1:7700",
			MeiliIndex: "products",
		},
		Cache: CacheConfig{
			RedisURL: "redis://127.0.0.1:6379/0",
			TTL:      Duration{5 * time.Minute},
			Prefix:   "suggest:",
		},
	}
}

// SearchOptions returns the options the suggest service reads per request.
func (c *Config) SearchOptions() suggest.Options {
	return suggest.Options{
		MinToSearch:    c.Search.MinToSearch,
		ResultNum:      c.Search.ResultNum,
		OutOfStock:     c.Search.OutOfStock,
		HideOutOfStock: c.Store.HideOutOfStock,
	}
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	if c.Search.MinToSearch < 0 {
		return fmt.Errorf("search.min_to_search must not be negative, got %d", c.Search.MinToSearch)
	}
	if c.Search.ResultNum < 0 {
		return fmt.Errorf("search.result_num must not be negative, got %d", c.Search.ResultNum)
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("server.rate_limit and server.rate_burst must not be negative")
	}
	for _, cidr := range c.Server.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return fmt.Errorf("server.trusted_proxies: %w", err)
		}
	}
	if strings.Trim(c.Server.Namespace, "/") == "" {
		return fmt.Errorf("server.namespace must not be empty")
	}
	switch c.Catalog.Backend {
	case BackendMemory:
		if c.Catalog.Snapshot == "" {
			return fmt.Errorf("catalog.snapshot is required for the %s backend", BackendMemory)
		}
	case BackendMeili:
		if c.Catalog.MeiliHost == "" || c.Catalog.MeiliIndex == "" {
			return fmt.Errorf("catalog.meili_host and catalog.meili_index are required for the %s backend", BackendMeili)
		}
	default:
		return fmt.Errorf("unknown catalog.backend %q (expected %s or %s)", c.Catalog.Backend, BackendMemory, BackendMeili)
	}
	if c.Cache.Enabled && c.Cache.RedisURL == "" {
		return fmt.Errorf("cache.redis_url is required when the cache is enabled")
	}
	return nil
}

// LogLevel parses Log.Level, falling back to warn.
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.WarnLevel
	}
	return level
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	pr, err := utils.NewPathResolver()
	if err != nil {
		return "", err
	}
	return pr.GetConfigPath(DefaultFileName)
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("%v. Using built-in defaults...", err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file. Typed values in a file that decodes
// only partially are recovered; an empty or unparsable file is an error.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", configPath, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("config file %s is empty", configPath)
	}

	config := DefaultConfig()
	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse attempts to recover typed values from a TOML file
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		return nil, fmt.Errorf("config file %s is not valid TOML: %w", configPath, err)
	}

	if section, ok := utils.ExtractSection(tempConfig, "log"); ok {
		if val, ok := utils.ExtractString(section, "level"); ok {
			config.Log.Level = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "search"); ok {
		extractSearchConfig(section, &config.Search)
	}
	if section, ok := utils.ExtractSection(tempConfig, "store"); ok {
		if val, ok := utils.ExtractBool(section, "hide_out_of_stock"); ok {
			config.Store.HideOutOfStock = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "catalog"); ok {
		extractCatalogConfig(section, &config.Catalog)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cache"); ok {
		extractCacheConfig(section, &config.Cache)
	}
	return config, nil
}

// extractServerConfig extracts server configuration from a map
func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractString(data, "addr"); ok {
		server.Addr = val
	}
	if val, ok := utils.ExtractString(data, "namespace"); ok {
		server.Namespace = val
	}
	if val, ok := utils.ExtractDuration(data, "catalog_timeout"); ok {
		server.CatalogTimeout.Duration = val
	}
	if val, ok := utils.ExtractDuration(data, "read_header_timeout"); ok {
		server.ReadHeaderTimeout.Duration = val
	}
	if val, ok := utils.ExtractDuration(data, "shutdown_timeout"); ok {
		server.ShutdownTimeout.Duration = val
	}
	if val, ok := utils.ExtractInt64(data, "rate_limit"); ok {
		server.RateLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "rate_burst"); ok {
		server.RateBurst = val
	}
	if val, ok := utils.ExtractStringSlice(data, "trusted_proxies"); ok {
		server.TrustedProxies = val
	}
}

// extractSearchConfig extracts search configuration from a map
func extractSearchConfig(data map[string]any, search *SearchConfig) {
	if val, ok := utils.ExtractInt64(data, "min_to_search"); ok {
		search.MinToSearch = val
	}
	if val, ok := utils.ExtractInt64(data, "result_num"); ok {
		search.ResultNum = val
	}
	if val, ok := utils.ExtractStringSlice(data, "where_to_search"); ok {
		search.WhereToSearch = val
	}
	if val, ok := utils.ExtractString(data, "search_selector"); ok {
		search.SearchSelector = val
	}
	if val, ok := utils.ExtractBool(data, "force_product_search"); ok {
		search.ForceProductSearch = val
	}
	if val, ok := utils.ExtractBool(data, "out_of_stock"); ok {
		search.OutOfStock = &val
	}
	if val, ok := utils.ExtractString(data, "show_all_message"); ok {
		search.ShowAllMessage = val
	}
	if val, ok := utils.ExtractString(data, "custom_css"); ok {
		search.CustomCSS = val
	}
	if val, ok := utils.ExtractStringSlice(data, "autocomplete_fields"); ok {
		search.AutocompleteFields = val
	}
}

// extractCatalogConfig extracts catalog configuration from a map
func extractCatalogConfig(data map[string]any, catalog *CatalogConfig) {
	if val, ok := utils.ExtractString(data, "backend"); ok {
		catalog.Backend = val
	}
	if val, ok := utils.ExtractString(data, "snapshot"); ok {
		catalog.Snapshot = val
	}
	if val, ok := utils.ExtractString(data, "meili_host"); ok {
		catalog.MeiliHost = val
	}
	if val, ok := utils.ExtractString(data, "meili_api_key"); ok {
		catalog.MeiliAPIKey = val
	}
	if val, ok := utils.ExtractString(data, "meili_index"); ok {
		catalog.MeiliIndex = val
	}
}

// extractCacheConfig extracts cache configuration from a map
func extractCacheConfig(data map[string]any, cache *CacheConfig) {
	if val, ok := utils.ExtractBool(data, "enabled"); ok {
		cache.Enabled = val
	}
	if val, ok := utils.ExtractString(data, "redis_url"); ok {
		cache.RedisURL = val
	}
	if val, ok := utils.ExtractDuration(data, "ttl"); ok {
		cache.TTL.Duration = val
	}
	if val, ok := utils.ExtractString(data, "prefix"); ok {
		cache.Prefix = val
	}
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

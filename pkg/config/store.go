package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/bastiangx/suggestserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// reloadDebounce groups the burst of events editors emit on save.
const reloadDebounce = 200 * time.Millisecond

// Store holds the active config. Reads never block; a reload swaps the pointer.
type Store struct {
	path    string
	current atomic.Pointer[Config]
	// OnReload, when set, is called with every config that replaced the previous one.
	OnReload func(*Config)
}

// NewStore returns a store serving cfg, reloading from path when asked.
// path may be empty, in which case Reload is a no-op.
func NewStore(cfg *Config, path string) *Store {
	s := &Store{path: path}
	s.current.Store(cfg)
	return s
}

// Config returns the active config. Callers must not modify it.
func (s *Store) Config() *Config {
	return s.current.Load()
}

// SearchOptions implements suggest.OptionsProvider.
func (s *Store) SearchOptions() suggest.Options {
	return s.Config().SearchOptions()
}

// Path returns the file the store reloads from.
func (s *Store) Path() string { return s.path }

// Reload reads the file again. An unreadable or invalid file keeps the
// previous config and returns the error.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	cfg, err := LoadConfig(s.path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.current.Store(cfg)
	if s.OnReload != nil {
		s.OnReload(cfg)
	}
	return nil
}

// Watch reloads the config whenever the file changes until ctx is done.
// The parent directory is watched so atomic replaces are picked up too.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			log.Warnf("Failed to close config file watcher: %v", err)
		}
	}()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	log.Debugf("Watching config file for changes: %s", s.path)

	target := filepath.Clean(s.path)
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.After(reloadDebounce)
			}

		case <-pending:
			pending = nil
			if _, err := os.Stat(s.path); os.IsNotExist(err) {
				log.Warnf("Config file %s was removed, keeping current config", s.path)
				continue
			}
			if err := s.Reload(); err != nil {
				log.Errorf("Failed to reload configuration: %v", err)
				continue
			}
			log.Info("Configuration reloaded", "path", s.path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("Config watcher error: %v", err)
		}
	}
}

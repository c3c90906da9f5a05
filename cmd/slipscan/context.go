package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"slipscan/internal/config"
	"slipscan/internal/logging"
	"slipscan/internal/ranks"
	"slipscan/internal/scancache"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// ensureLogger builds the file-backed logger lazily so commands that never
// log (config init, doctor) don't touch the log directory.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) loggerValue() *slog.Logger {
	logger, err := c.ensureLogger()
	if err != nil || logger == nil {
		return logging.NewNop()
	}
	return logger
}

// openScanCache returns the configured scan cache, or a disabled one when the
// feature is off.
func (c *commandContext) openScanCache() (*scancache.Cache, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	path := ""
	if cfg.ScanCache.Enabled {
		path = cfg.ScanCache.Path
	}
	return scancache.New(path, c.loggerValue()), nil
}

// withScanLock runs fn while holding the exclusive scan lock, so concurrent
// scans cannot race on the cache and library files.
func (c *commandContext) withScanLock(fn func() error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire scan lock: %w", err)
	}
	if !ok {
		return errors.New("another slipscan instance is already scanning")
	}
	defer func() { _ = lock.Unlock() }()

	return fn()
}

func (c *commandContext) rankResolver() (*ranks.Resolver, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Slippi.Enabled {
		return nil, errors.New("rank lookups are disabled (set slippi.enabled in the config)")
	}
	client := ranks.NewClient(ranks.Config{
		GraphQLURL:     cfg.Slippi.GraphQLURL,
		UserAgent:      cfg.Slippi.UserAgent,
		TimeoutSeconds: cfg.Slippi.TimeoutSeconds,
	})
	return ranks.NewResolver(client, c.loggerValue()), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

package config

import (
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeScanCache(); err != nil {
		return err
	}
	c.normalizePlayer()
	c.normalizeScanner()
	c.normalizeSlippi()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeScanner() {
	ext := strings.TrimSpace(c.Scanner.Extension)
	if ext == "" {
		ext = defaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	c.Scanner.Extension = strings.ToLower(ext)
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.ReplayDir, err = expandPath(c.Paths.ReplayDir); err != nil {
		return err
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizeScanCache() error {
	var err error
	if c.ScanCache.Path, err = expandPath(c.ScanCache.Path); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizePlayer() {
	// SLIPSCAN_CONNECT_CODE overrides the file so CI and shared machines
	// can set identity without editing config.
	if env := strings.TrimSpace(os.Getenv("SLIPSCAN_CONNECT_CODE")); env != "" {
		c.Player.ConnectCode = env
	}
	c.Player.ConnectCode = strings.ToUpper(strings.TrimSpace(c.Player.ConnectCode))
}

func (c *Config) normalizeSlippi() {
	c.Slippi.GraphQLURL = strings.TrimSpace(c.Slippi.GraphQLURL)
	c.Slippi.UserAgent = strings.TrimSpace(c.Slippi.UserAgent)
	if c.Slippi.TimeoutSeconds <= 0 {
		c.Slippi.TimeoutSeconds = defaultLookupTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

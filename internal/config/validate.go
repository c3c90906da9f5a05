package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// connectCodePattern matches Slippi connect codes such as "ABCD#123".
var connectCodePattern = regexp.MustCompile(`^[A-Z0-9]{1,8}#[0-9]{1,7}$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePlayer(); err != nil {
		return err
	}
	if err := c.validateScanner(); err != nil {
		return err
	}
	if err := c.validateSlippi(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		return errors.New("paths.cache_dir must be set")
	}
	return nil
}

func (c *Config) validatePlayer() error {
	code := strings.TrimSpace(c.Player.ConnectCode)
	if code == "" {
		return nil // stats simply have no subject until a code is configured
	}
	if !connectCodePattern.MatchString(code) {
		return fmt.Errorf("player.connect_code %q is not a valid connect code (expected TAG#123)", code)
	}
	return nil
}

func (c *Config) validateScanner() error {
	if c.Scanner.Workers < 0 {
		return errors.New("scanner.workers must be zero or positive")
	}
	if !strings.HasPrefix(c.Scanner.Extension, ".") {
		return fmt.Errorf("scanner.extension %q must start with a dot", c.Scanner.Extension)
	}
	return nil
}

func (c *Config) validateSlippi() error {
	if !c.Slippi.Enabled {
		return nil
	}
	if c.Slippi.GraphQLURL == "" {
		return errors.New("slippi.graphql_url must be set when slippi.enabled is true")
	}
	if !strings.HasPrefix(c.Slippi.GraphQLURL, "http://") && !strings.HasPrefix(c.Slippi.GraphQLURL, "https://") {
		return fmt.Errorf("slippi.graphql_url %q must be an http(s) URL", c.Slippi.GraphQLURL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	return nil
}

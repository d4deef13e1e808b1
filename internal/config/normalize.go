package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeSource(); err != nil {
		return err
	}
	c.normalizeWatch()
	if err := c.normalizeFilter(); err != nil {
		return err
	}
	if err := c.normalizeDaemon(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeSource() error {
	if env := strings.TrimSpace(os.Getenv("INTAKE_DIRECTORY")); env != "" {
		c.Source.Directory = env
	}
	c.Source.Directory = strings.TrimSpace(c.Source.Directory)
	if c.IsTemplate() {
		// Templates are resolved per scan; only the home prefix is expanded.
		if strings.HasPrefix(c.Source.Directory, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("source.directory: resolve home directory: %w", err)
			}
			c.Source.Directory = home + c.Source.Directory[1:]
		}
	} else {
		var err error
		if c.Source.Directory, err = expandPath(c.Source.Directory); err != nil {
			return fmt.Errorf("source.directory: %w", err)
		}
	}
	c.Source.Order = strings.ToLower(strings.TrimSpace(c.Source.Order))
	if c.Source.Order == "" {
		c.Source.Order = defaultOrder
	}
	return nil
}

func (c *Config) normalizeWatch() {
	events := c.Watch.Events[:0]
	for _, e := range c.Watch.Events {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			events = append(events, e)
		}
	}
	if len(events) == 0 {
		events = []string{defaultWatchEvent}
	}
	c.Watch.Events = events
}

func (c *Config) normalizeFilter() error {
	c.Filter.Pattern = strings.TrimSpace(c.Filter.Pattern)
	if strings.TrimSpace(c.Filter.StorePath) == "" {
		c.Filter.StorePath = defaultStorePath
	}
	var err error
	if c.Filter.StorePath, err = expandPath(c.Filter.StorePath); err != nil {
		return fmt.Errorf("filter.store_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeDaemon() error {
	var err error
	if c.Daemon.SocketPath, err = expandPath(strings.TrimSpace(c.Daemon.SocketPath)); err != nil {
		return fmt.Errorf("daemon.socket_path: %w", err)
	}
	c.Daemon.HTTPBind = strings.TrimSpace(c.Daemon.HTTPBind)
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "":
		c.Logging.Format = defaultLogFormat
	case "console":
		c.Logging.Format = "text"
	}
}

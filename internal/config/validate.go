package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"text/template"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateFilter(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSource() error {
	if c.Source.Directory == "" {
		return errors.New("source.directory must be set")
	}
	if c.IsTemplate() {
		if _, err := template.New("directory").Parse(c.Source.Directory); err != nil {
			return fmt.Errorf("source.directory: %w", err)
		}
	}
	switch c.Source.Order {
	case "name", "path", "oldest", "newest":
	default:
		return fmt.Errorf("source.order: unsupported value %q (want name, oldest or newest)", c.Source.Order)
	}
	return nil
}

func (c *Config) validateWatch() error {
	for _, e := range c.Watch.Events {
		switch e {
		case "create", "modify", "delete":
		default:
			return fmt.Errorf("watch.events: unsupported value %q (want create, modify or delete)", e)
		}
	}
	if c.Watch.MaxDepth < 0 {
		return errors.New("watch.max_depth must be >= 0")
	}
	if c.Watch.BufferSize < 0 {
		return errors.New("watch.buffer_size must be >= 0")
	}
	return nil
}

func (c *Config) validateFilter() error {
	if c.Filter.Pattern != "" {
		if _, err := filepath.Match(c.Filter.Pattern, ""); err != nil {
			return fmt.Errorf("filter.pattern: %w", err)
		}
	}
	if c.Filter.Regex != "" {
		if _, err := regexp.Compile(c.Filter.Regex); err != nil {
			return fmt.Errorf("filter.regex: %w", err)
		}
	}
	if c.Filter.AcceptOnceCapacity < 0 {
		return errors.New("filter.accept_once_capacity must be >= 0")
	}
	if c.Filter.MinAgeSeconds < 0 {
		return errors.New("filter.min_age_seconds must be >= 0")
	}
	if c.Filter.Persistent && c.Filter.StorePath == "" {
		return errors.New("filter.store_path must be set when filter.persistent is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

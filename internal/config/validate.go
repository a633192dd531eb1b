package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateImages(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateExport() error {
	if c.Export.ProjectID == "" {
		return errors.New("export.project_id must be set")
	}
	if strings.ContainsAny(c.Export.ProjectID, `/\`) {
		return fmt.Errorf("export.project_id %q must not contain path separators", c.Export.ProjectID)
	}
	if c.Export.Workers < 1 {
		return fmt.Errorf("export.workers must be at least 1, got %d", c.Export.Workers)
	}
	if c.Export.FloatDecimals < -1 || c.Export.FloatDecimals > 15 {
		return fmt.Errorf("export.float_decimals must be between -1 and 15, got %d", c.Export.FloatDecimals)
	}
	return nil
}

func (c *Config) validateImages() error {
	if c.Images.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("images.fetch_timeout_seconds must be positive, got %d", c.Images.FetchTimeoutSeconds)
	}
	if c.Images.Hostname != "" {
		u, err := url.Parse(c.Images.Hostname)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("images.hostname %q must be an http(s) URL", c.Images.Hostname)
		}
	}
	for name, field := range c.Images.Fields {
		if strings.TrimSpace(field) == "" {
			return fmt.Errorf("images.fields.%s must name a data key", name)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	if c.Logging.File != "" && (c.Logging.MaxSizeMB <= 0 || c.Logging.MaxBackups < 0) {
		return errors.New("logging.max_size_mb must be positive and logging.max_backups non-negative")
	}
	return nil
}

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/a8m/envsubst"
	"github.com/pelletier/go-toml/v2"

	"github.com/ironsheep/segexport/internal/export"
	"github.com/ironsheep/segexport/internal/logging"
	"github.com/ironsheep/segexport/internal/source"
)

//go:embed sample_config.toml
var sampleConfig string

// Export contains pipeline settings.
type Export struct {
	ProjectID           string `toml:"project_id"`
	OutputDir           string `toml:"output_dir"`
	Workers             int    `toml:"workers"`
	AllowRemoteFetch    bool   `toml:"allow_remote_fetch"`
	UseTextualOverrides bool   `toml:"use_textual_overrides"`
	FloatDecimals       int    `toml:"float_decimals"`
}

// Images contains image resolution settings.
type Images struct {
	MediaRoot           string `toml:"media_root"`
	UploadDir           string `toml:"upload_dir"`
	Hostname            string `toml:"hostname"`
	AuthToken           string `toml:"auth_token"`
	FetchTimeoutSeconds int    `toml:"fetch_timeout_seconds"`
	DefaultField        string `toml:"default_field"`

	// Fields maps a result's to_name to the task data key of its image.
	Fields map[string]string `toml:"fields"`
}

// Logging contains logger settings.
type Logging struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Config is the top-level configuration.
type Config struct {
	Export  Export  `toml:"export"`
	Images  Images  `toml:"images"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/segexport/config.toml")
}

// Load locates, parses, and validates a configuration file. The second return
// value is the resolved path and the third reports whether the file existed;
// a missing file yields the defaults.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		buf, err := envsubst.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(buf, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("segexport.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	c.Export.ProjectID = strings.TrimSpace(c.Export.ProjectID)
	c.Images.Hostname = strings.TrimRight(strings.TrimSpace(c.Images.Hostname), "/")
	c.Images.DefaultField = strings.TrimSpace(c.Images.DefaultField)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Images.Fields == nil {
		c.Images.Fields = map[string]string{}
	}

	var err error
	if c.Export.OutputDir, err = ExpandPath(c.Export.OutputDir); err != nil {
		return err
	}
	if c.Images.MediaRoot, err = ExpandPath(c.Images.MediaRoot); err != nil {
		return err
	}
	if c.Logging.File, err = ExpandPath(c.Logging.File); err != nil {
		return err
	}
	return nil
}

// ExpandPath resolves "~" and returns an absolute, cleaned path. Empty input
// is returned unchanged.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ExportOptions returns the pipeline options for this configuration.
func (c *Config) ExportOptions() export.Options {
	fields := make(map[string]string, len(c.Images.Fields))
	for k, v := range c.Images.Fields {
		fields[k] = v
	}
	return export.Options{
		ProjectID:           c.Export.ProjectID,
		AllowRemoteFetch:    c.Export.AllowRemoteFetch,
		Workers:             c.Export.Workers,
		UseTextualOverrides: c.Export.UseTextualOverrides,
		ImageFields:         fields,
		DefaultImageField:   c.Images.DefaultField,
	}
}

// SourceOptions returns the image resolver options for this configuration.
func (c *Config) SourceOptions() source.Options {
	return source.Options{
		MediaRoot:    c.Images.MediaRoot,
		UploadDir:    c.Images.UploadDir,
		Hostname:     c.Images.Hostname,
		AuthToken:    c.Images.AuthToken,
		FetchTimeout: time.Duration(c.Images.FetchTimeoutSeconds) * time.Second,
	}
}

// LoggingOptions returns the logger options for this configuration.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
	}
}

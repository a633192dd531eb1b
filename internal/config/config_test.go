package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ironsheep/segexport/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "segexport.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be reported absent")
	}
	if resolved != path {
		t.Fatalf("resolved path: got %q want %q", resolved, path)
	}
	if cfg.Export.Workers != config.DefaultWorkers || cfg.Export.FloatDecimals != -1 {
		t.Fatalf("unexpected export defaults: %+v", cfg.Export)
	}
	if !cfg.Export.UseTextualOverrides {
		t.Fatal("expected textual overrides enabled by default")
	}
	if !filepath.IsAbs(cfg.Export.OutputDir) {
		t.Fatalf("output dir should be absolute, got %q", cfg.Export.OutputDir)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("SEGEXPORT_TEST_TOKEN", "secret-token")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := writeConfig(t, `
[export]
project_id = "42"
workers = 4
allow_remote_fetch = true

[images]
media_root = "~/media"
hostname = "https://ls.example.com/"
auth_token = "${SEGEXPORT_TEST_TOKEN}"
fetch_timeout_seconds = 5

[images.fields]
img = "image"

[logging]
level = "DEBUG"
format = "json"
`)

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Images.AuthToken != "secret-token" {
		t.Fatalf("auth token not expanded: %q", cfg.Images.AuthToken)
	}
	if cfg.Images.MediaRoot != filepath.Join(tempHome, "media") {
		t.Fatalf("media root not expanded: %q", cfg.Images.MediaRoot)
	}
	if cfg.Images.Hostname != "https://ls.example.com" {
		t.Fatalf("hostname not normalized: %q", cfg.Images.Hostname)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("log level not normalized: %q", cfg.Logging.Level)
	}
	if cfg.Images.UploadDir != config.DefaultUploadDir {
		t.Fatalf("unset keys should keep defaults, got upload dir %q", cfg.Images.UploadDir)
	}

	opts := cfg.ExportOptions()
	if opts.ProjectID != "42" || opts.Workers != 4 || !opts.AllowRemoteFetch || opts.ImageFields["img"] != "image" {
		t.Fatalf("unexpected export options: %+v", opts)
	}
	src := cfg.SourceOptions()
	if src.FetchTimeout != 5*time.Second || src.AuthToken != "secret-token" {
		t.Fatalf("unexpected source options: %+v", src)
	}
	if lo := cfg.LoggingOptions(); lo.Format != "json" || lo.Level != "debug" {
		t.Fatalf("unexpected logging options: %+v", lo)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"workers", "[export]\nworkers = 0\n", "export.workers"},
		{"decimals", "[export]\nfloat_decimals = 20\n", "export.float_decimals"},
		{"project id", "[export]\nproject_id = \"a/b\"\n", "export.project_id"},
		{"timeout", "[images]\nfetch_timeout_seconds = 0\n", "images.fetch_timeout_seconds"},
		{"hostname", "[images]\nhostname = \"ftp://x\"\n", "images.hostname"},
		{"level", "[logging]\nlevel = \"loud\"\n", "logging.level"},
		{"format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"syntax", "[export\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := config.Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if cfg.Export.ProjectID != "1" {
		t.Fatalf("unexpected sample project id: %q", cfg.Export.ProjectID)
	}
}

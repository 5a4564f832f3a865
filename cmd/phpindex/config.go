package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gnana997/phpindex/pkg/util"
	"github.com/gnana997/phpindex/pkg/workspace"
)

// ProjectConfig holds the contents of .phpindex/config.yaml.
type ProjectConfig struct {
	Version    string   `yaml:"version"`
	Extensions []string `yaml:"extensions"`
	Include    []string `yaml:"include"`
	Exclude    []string `yaml:"exclude"`
	IndexDir   string   `yaml:"index_dir"`
	DebounceMs int      `yaml:"debounce_ms"`
	LogLevel   string   `yaml:"log_level"`
	LogFormat  string   `yaml:"log_format"`
}

// loadProjectConfig reads .phpindex/config.yaml from the current directory.
// Returns nil (no error) if the file does not exist.
func loadProjectConfig() (*ProjectConfig, error) {
	data, err := os.ReadFile(".phpindex/config.yaml")
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// workspaceConfig merges the project config over the defaults.
func workspaceConfig(cfg *ProjectConfig) workspace.Config {
	out := workspace.DefaultConfig()
	if cfg == nil {
		return out
	}
	if len(cfg.Extensions) > 0 {
		out.Extensions = cfg.Extensions
	}
	if len(cfg.Include) > 0 {
		out.Include = cfg.Include
	}
	if len(cfg.Exclude) > 0 {
		out.Exclude = cfg.Exclude
	}
	if cfg.IndexDir != "" {
		out.IndexDir = cfg.IndexDir
	}
	if cfg.DebounceMs > 0 {
		out.Debounce = time.Duration(cfg.DebounceMs) * time.Millisecond
	}
	return out
}

// loggerConfig derives the logger configuration from the project config.
func loggerConfig(cfg *ProjectConfig) util.LoggerConfig {
	out := util.DefaultLoggerConfig()
	if cfg == nil {
		return out
	}
	if cfg.LogLevel != "" {
		out.Level = util.LogLevel(cfg.LogLevel)
	}
	if cfg.LogFormat != "" {
		out.Format = util.LogFormat(cfg.LogFormat)
	}
	return out
}

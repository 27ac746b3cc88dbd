package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigDir  = ".fridge"
	defaultConfigName = "config.yaml"
	defaultDBName     = "fridge.db"
)

var errConfigNotFound = errors.New("config not found")

// Config is the resolved CLI configuration. Sources are merged in order:
// config file, environment (including .env), then flags.
type Config struct {
	Backend         string `yaml:"backend"`
	APIURL          string `yaml:"api_url"`
	APIToken        string `yaml:"api_token"`
	GeminiAPIKey    string `yaml:"gemini_api_key"`
	GeminiModel     string `yaml:"gemini_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`
	Database        string `yaml:"database"`
	GroupID         string `yaml:"group_id"`
	UserID          string `yaml:"user_id"`
	LogLevel        string `yaml:"log_level"`
	LogFormat       string `yaml:"log_format"`
	LogFile         string `yaml:"log_file"`
}

// Env carries the environment variables the CLI understands. It is filled
// in main and passed down as a value.
type Env struct {
	Home            string
	ConfigPath      string // FRIDGE_CONFIG
	APIURL          string // FRIDGE_API_URL
	APIToken        string // FRIDGE_API_TOKEN
	GeminiAPIKey    string // GEMINI_API_KEY
	AnthropicAPIKey string // ANTHROPIC_API_KEY
	Database        string // FRIDGE_DB
	LogLevel        string // FRIDGE_LOG_LEVEL
}

// Config returns the configuration layer contributed by the environment.
func (e Env) Config() Config {
	return Config{
		APIURL:          e.APIURL,
		APIToken:        e.APIToken,
		GeminiAPIKey:    e.GeminiAPIKey,
		AnthropicAPIKey: e.AnthropicAPIKey,
		Database:        e.Database,
		LogLevel:        e.LogLevel,
	}
}

func defaultConfigPath(home string) string {
	if strings.TrimSpace(home) == "" {
		return defaultConfigName
	}
	return filepath.Join(home, defaultConfigDir, defaultConfigName)
}

func defaultDatabasePath(home string) string {
	if strings.TrimSpace(home) == "" {
		return defaultDBName
	}
	return filepath.Join(home, defaultConfigDir, defaultDBName)
}

func expandUserPath(path, home string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok && strings.TrimSpace(home) != "" {
		return filepath.Join(home, rest)
	}
	return path
}

// loadConfig reads a YAML config file. A missing file yields
// errConfigNotFound.
func loadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, errConfigNotFound
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// resolveConfig loads the config file and overlays env and flags. The
// default config file may be missing; an explicitly named one may not.
func resolveConfig(explicitPath string, env Env, flags Config) (Config, error) {
	path, explicit := explicitPath, true
	if strings.TrimSpace(path) == "" {
		path = env.ConfigPath
	}
	if strings.TrimSpace(path) == "" {
		path, explicit = defaultConfigPath(env.Home), false
	}
	path = expandUserPath(path, env.Home)

	base, err := loadConfig(path)
	switch {
	case err == nil:
	case errors.Is(err, errConfigNotFound) && !explicit:
	default:
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	cfg := mergeConfig(mergeConfig(base, env.Config()), flags)
	if cfg.Database == "" {
		cfg.Database = defaultDatabasePath(env.Home)
	}
	cfg.Database = expandUserPath(cfg.Database, env.Home)
	if cfg.LogFile != "" {
		cfg.LogFile = expandUserPath(cfg.LogFile, env.Home)
	}
	return cfg, nil
}

// mergeConfig returns base with every non-empty field of override applied.
func mergeConfig(base, override Config) Config {
	set := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	set(&base.Backend, override.Backend)
	set(&base.APIURL, override.APIURL)
	set(&base.APIToken, override.APIToken)
	set(&base.GeminiAPIKey, override.GeminiAPIKey)
	set(&base.GeminiModel, override.GeminiModel)
	set(&base.AnthropicAPIKey, override.AnthropicAPIKey)
	set(&base.AnthropicModel, override.AnthropicModel)
	set(&base.Database, override.Database)
	set(&base.GroupID, override.GroupID)
	set(&base.UserID, override.UserID)
	set(&base.LogLevel, override.LogLevel)
	set(&base.LogFormat, override.LogFormat)
	set(&base.LogFile, override.LogFile)
	return base
}

// Package config loads mediascribe settings from .env, an optional YAML file
// and environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"mediascribe/gemini"
	"mediascribe/media"
)

// Environment variables understood by Load
const (
	EnvConfigPath = "MEDIASCRIBE_CONFIG"
	EnvModel      = "GEMINI_MODEL"
	EnvOutputDir  = "MEDIASCRIBE_OUTPUT_DIR"
	EnvListenAddr = "MEDIASCRIBE_ADDR"
	EnvDebug      = "MEDIASCRIBE_DEBUG"
)

// DefaultListenAddr is where `serve` listens unless told otherwise
const DefaultListenAddr = "127.0.0.1:8080"

// Config holds the application settings. The API key is deliberately not
// part of it: it is only read from the environment.
type Config struct {
	Model          string        `yaml:"model"`
	OutputDir      string        `yaml:"output_dir"`
	ListenAddr     string        `yaml:"listen_addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	Debug          bool          `yaml:"debug"`

	// Path is the YAML file that was loaded, empty when none
	Path string `yaml:"-"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Model:          gemini.DefaultModel,
		OutputDir:      ".",
		ListenAddr:     DefaultListenAddr,
		RequestTimeout: gemini.DefaultTimeout,
		FetchTimeout:   media.DefaultFetchTimeout,
	}
}

// Load reads .env (if present), the YAML file named by MEDIASCRIBE_CONFIG
// or found at DefaultPath, then applies environment overrides
func Load() (*Config, error) {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	path := os.Getenv(EnvConfigPath)
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg, err := LoadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			cfg = Default()
		} else {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// LoadFile reads settings from a YAML file on top of Default
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// DefaultPath is $XDG_CONFIG_HOME/mediascribe/config.yaml, falling back to
// ~/.config/mediascribe/config.yaml
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "mediascribe", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mediascribe", "config.yaml")
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		c.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOutputDir)); v != "" {
		c.OutputDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvListenAddr)); v != "" {
		c.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDebug)); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", EnvDebug, v, err)
		}
		c.Debug = debug
	}
	return nil
}

// Validate rejects settings that cannot work
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("model must not be empty")
	}
	if c.RequestTimeout < 0 || c.FetchTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	return nil
}

// CheckAPIKey reports whether a Gemini API key is available
func CheckAPIKey() error {
	return gemini.CheckConfig()
}

// APIKeyHelp explains how to obtain and set the API key
func APIKeyHelp() string {
	return gemini.GetAPIKeyHelp()
}

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the settings for the synq client.
type Config struct {
	APIBind        string
	PollInterval   time.Duration
	AutoFetch      bool
	Key            string
	LogFile        string
	LogLevel       string
	RequestTimeout time.Duration
	Retries        int
}

const (
	defaultConfigPath     = "~/.config/synq/config.toml"
	defaultAPIBind        = "127.0.0.1:7489"
	defaultPollSeconds    = 10
	defaultKey            = "id"
	defaultLogFile        = "~/.local/share/synq/synq.log"
	defaultLogLevel       = "info"
	defaultTimeoutSeconds = 5
	defaultRetries        = 2
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIBind:        defaultAPIBind,
		PollInterval:   defaultPollSeconds * time.Second,
		AutoFetch:      true,
		Key:            defaultKey,
		LogFile:        mustExpand(defaultLogFile),
		LogLevel:       defaultLogLevel,
		RequestTimeout: defaultTimeoutSeconds * time.Second,
		Retries:        defaultRetries,
	}
}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIBind        string `toml:"api_bind"`
		PollSeconds    *int   `toml:"poll_seconds"`
		AutoFetch      *bool  `toml:"auto_fetch"`
		Key            string `toml:"key"`
		LogFile        string `toml:"log_file"`
		LogLevel       string `toml:"log_level"`
		TimeoutSeconds int    `toml:"request_timeout_seconds"`
		Retries        *int   `toml:"retries"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIBind); v != "" {
		cfg.APIBind = v
	}
	if raw.PollSeconds != nil {
		if *raw.PollSeconds < 0 {
			return Config{}, fmt.Errorf("parse config: poll_seconds must not be negative")
		}
		// Zero disables polling.
		cfg.PollInterval = time.Duration(*raw.PollSeconds) * time.Second
	}
	if raw.AutoFetch != nil {
		cfg.AutoFetch = *raw.AutoFetch
	}
	if v := strings.TrimSpace(raw.Key); v != "" {
		cfg.Key = v
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = v
		if v != "-" {
			cfg.LogFile = mustExpand(v)
		}
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if raw.TimeoutSeconds > 0 {
		cfg.RequestTimeout = time.Duration(raw.TimeoutSeconds) * time.Second
	}
	if raw.Retries != nil && *raw.Retries >= 0 {
		cfg.Retries = *raw.Retries
	}

	return cfg, nil
}

// LogDir returns the directory holding the log file.
func (c Config) LogDir() string {
	if strings.TrimSpace(c.LogFile) == "" {
		return filepath.Dir(mustExpand(defaultLogFile))
	}
	return filepath.Dir(c.LogFile)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

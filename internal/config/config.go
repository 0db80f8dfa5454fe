// Package config handles configuration management for ibridge.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Debugger  DebuggerConfig  `mapstructure:"debugger"`
	Editor    EditorConfig    `mapstructure:"editor"`
	Watcher   WatcherConfig   `mapstructure:"watcher"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Inbox     InboxConfig     `mapstructure:"inbox"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Pairing   PairingConfig   `mapstructure:"pairing"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	ExternalWSURL string `mapstructure:"external_ws_url"` // Optional: public URL for mobile clients (e.g. wss://tunnel.devtunnels.ms)
}

// DebuggerConfig holds the editor remote-debugging endpoint configuration.
type DebuggerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// EditorConfig identifies the editor being bridged.
type EditorConfig struct {
	// Product is the editor's product name as it appears in window titles.
	Product string `mapstructure:"product"`
	// SecondaryMarker marks auxiliary windows whose titles must not be
	// treated as the main editor window.
	SecondaryMarker string `mapstructure:"secondary_marker"`
}

// WatcherConfig holds file watcher configuration.
type WatcherConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	DebounceMS int  `mapstructure:"debounce_ms"`
}

// WorkspaceConfig holds workspace monitor configuration.
type WorkspaceConfig struct {
	PollIntervalMS int `mapstructure:"poll_interval_ms"`
}

// InboxConfig holds the message inbox configuration.
type InboxConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PairingConfig holds pairing/QR code configuration.
type PairingConfig struct {
	ShowQRInTerminal bool `mapstructure:"show_qr_in_terminal"`
}

// Load loads configuration from files and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.ibridge")
		v.AddConfigPath("/etc/ibridge")
	}

	v.SetEnvPrefix("IBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := postProcess(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8765)

	// Debugger defaults: the editor's standard remote-debugging port
	v.SetDefault("debugger.host", "127.0.0.1")
	v.SetDefault("debugger.port", 9222)

	// Editor defaults
	v.SetDefault("editor.product", "Cursor")
	v.SetDefault("editor.secondary_marker", "Launchpad")

	// Watcher defaults
	v.SetDefault("watcher.enabled", true)
	v.SetDefault("watcher.debounce_ms", 300)

	// Workspace monitor defaults
	v.SetDefault("workspace.poll_interval_ms", 5000)

	// Inbox defaults
	v.SetDefault("inbox.path", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Pairing defaults
	v.SetDefault("pairing.show_qr_in_terminal", true)
}

// postProcess applies post-processing to configuration.
func postProcess(cfg *Config) error {
	if cfg.Inbox.Path == "" {
		dir, err := GetConfigDir()
		if err != nil {
			return fmt.Errorf("failed to resolve config dir: %w", err)
		}
		cfg.Inbox.Path = filepath.Join(dir, "inbox.db")
	}

	absPath, err := filepath.Abs(cfg.Inbox.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve inbox path: %w", err)
	}
	cfg.Inbox.Path = absPath

	return nil
}

// GetConfigDir returns the user config directory for ibridge.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".ibridge"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

package config

import (
	"fmt"
)

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true,
	"warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"console": true, "json": true,
}

// Validate validates the configuration.
func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}
	if err := validateDebugger(&cfg.Debugger); err != nil {
		return err
	}
	if err := validateEditor(&cfg.Editor); err != nil {
		return err
	}
	if err := validateIntervals(cfg); err != nil {
		return err
	}
	if err := validateLogging(&cfg.Logging); err != nil {
		return err
	}
	return nil
}

func validateServer(cfg *ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.Host == "" {
		return fmt.Errorf("server.host must not be empty")
	}
	return nil
}

func validateDebugger(cfg *DebuggerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("debugger.port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.Host == "" {
		return fmt.Errorf("debugger.host must not be empty")
	}
	return nil
}

func validateEditor(cfg *EditorConfig) error {
	if cfg.Product == "" {
		return fmt.Errorf("editor.product must not be empty")
	}
	return nil
}

func validateIntervals(cfg *Config) error {
	if cfg.Watcher.DebounceMS < 0 {
		return fmt.Errorf("watcher.debounce_ms must not be negative, got %d", cfg.Watcher.DebounceMS)
	}
	if cfg.Workspace.PollIntervalMS < 100 {
		return fmt.Errorf("workspace.poll_interval_ms must be at least 100, got %d", cfg.Workspace.PollIntervalMS)
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	if !validLogLevels[cfg.Level] {
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error; got %q", cfg.Level)
	}
	if !validLogFormats[cfg.Format] {
		return fmt.Errorf("logging.format must be console or json, got %q", cfg.Format)
	}
	return nil
}

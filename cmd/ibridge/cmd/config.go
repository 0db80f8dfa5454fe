package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ibridge/internal/config"
)

var (
	configInitLocal bool
	configInitForce bool
)

// configCmd displays or manages configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display and manage configuration",
	Long: `Display and manage ibridge configuration.

Without subcommands, shows the current effective configuration.

Examples:
  ibridge config              # Show current config
  ibridge config init         # Create config file with defaults
  ibridge config path         # Show config file location
  ibridge config get <key>    # Get a config value
  ibridge config set <key> <value>  # Set a config value`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		printConfig(cfg)
	},
}

// configInitCmd creates a config file with defaults.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with default settings",
	Long: `Create a config file with default settings and documentation.

By default, creates ~/.ibridge/config.yaml.
Use --local to create ./config.yaml in the current directory.

Examples:
  ibridge config init          # Create ~/.ibridge/config.yaml
  ibridge config init --local  # Create ./config.yaml
  ibridge config init --force  # Overwrite existing file`,
	RunE: runConfigInit,
}

// configPathCmd shows config file location.
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file location",
	Run:   runConfigPath,
}

// configGetCmd gets a config value.
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a configuration value by key.

Keys use dot notation to access nested values.

Examples:
  ibridge config get server.port
  ibridge config get debugger.port
  ibridge config get logging.level`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configSetCmd sets a config value.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value by key.

Creates the config file if it doesn't exist.
Keys use dot notation to access nested values.

Examples:
  ibridge config set server.port 9000
  ibridge config set editor.product Code
  ibridge config set logging.level debug`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configInitLocal, "local", false, "create config in current directory instead of ~/.ibridge/")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite existing config file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	var configPath string

	if configInitLocal {
		configPath = "config.yaml"
	} else {
		configDir, err := config.EnsureConfigDir()
		if err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		configPath = filepath.Join(configDir, "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		if !configInitForce {
			return fmt.Errorf("config file already exists: %s\nUse --force to overwrite", configPath)
		}
	}

	if err := os.WriteFile(configPath, []byte(defaultConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("Edit this file to customize ibridge behavior.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) {
	configDir, err := config.GetConfigDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting config dir: %v\n", err)
		os.Exit(1)
	}

	locations := []string{
		"./config.yaml",
		filepath.Join(configDir, "config.yaml"),
		"/etc/ibridge/config.yaml",
	}

	fmt.Println("Config search paths (in order):")
	for i, loc := range locations {
		exists := "not found"
		if _, err := os.Stat(loc); err == nil {
			exists = "exists"
		}
		fmt.Printf("  %d. %s (%s)\n", i+1, loc, exists)
	}

	fmt.Printf("\nConfig directory: %s\n", configDir)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	value, err := getConfigValue(cfg, args[0])
	if err != nil {
		return err
	}

	fmt.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	configDir, err := config.EnsureConfigDir()
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	var data map[string]interface{}
	if content, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(content, &data); err != nil {
			return fmt.Errorf("failed to parse existing config: %w", err)
		}
	}
	if data == nil {
		data = make(map[string]interface{})
	}

	if err := setNestedValue(data, key, value); err != nil {
		return err
	}

	content, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(configPath, content, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Set %s = %s in %s\n", key, value, configPath)
	return nil
}

func getConfigValue(cfg *config.Config, key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid key: %s (expected section.field)", key)
	}

	switch parts[0] {
	case "server":
		switch parts[1] {
		case "host":
			return cfg.Server.Host, nil
		case "port":
			return cfg.Server.Port, nil
		case "external_ws_url":
			return cfg.Server.ExternalWSURL, nil
		}
	case "debugger":
		switch parts[1] {
		case "host":
			return cfg.Debugger.Host, nil
		case "port":
			return cfg.Debugger.Port, nil
		}
	case "editor":
		switch parts[1] {
		case "product":
			return cfg.Editor.Product, nil
		case "secondary_marker":
			return cfg.Editor.SecondaryMarker, nil
		}
	case "watcher":
		switch parts[1] {
		case "enabled":
			return cfg.Watcher.Enabled, nil
		case "debounce_ms":
			return cfg.Watcher.DebounceMS, nil
		}
	case "workspace":
		switch parts[1] {
		case "poll_interval_ms":
			return cfg.Workspace.PollIntervalMS, nil
		}
	case "inbox":
		switch parts[1] {
		case "path":
			return cfg.Inbox.Path, nil
		}
	case "logging":
		switch parts[1] {
		case "level":
			return cfg.Logging.Level, nil
		case "format":
			return cfg.Logging.Format, nil
		}
	case "pairing":
		switch parts[1] {
		case "show_qr_in_terminal":
			return cfg.Pairing.ShowQRInTerminal, nil
		}
	}

	return nil, fmt.Errorf("unknown config key: %s", key)
}

func setNestedValue(data map[string]interface{}, key, value string) error {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return fmt.Errorf("invalid key: %s (expected section.field)", key)
	}

	section, ok := data[parts[0]].(map[string]interface{})
	if !ok {
		section = make(map[string]interface{})
		data[parts[0]] = section
	}

	// Preserve scalar types where the string form is unambiguous.
	var parsed interface{} = value
	if value == "true" || value == "false" {
		parsed = value == "true"
	} else if n, err := strconv.Atoi(value); err == nil {
		parsed = n
	}
	section[parts[1]] = parsed
	return nil
}

func printConfig(cfg *config.Config) {
	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("Server:          %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	if cfg.Server.ExternalWSURL != "" {
		fmt.Printf("External WS URL: %s\n", cfg.Server.ExternalWSURL)
	}
	fmt.Printf("Debugger:        %s:%d\n", cfg.Debugger.Host, cfg.Debugger.Port)
	fmt.Printf("Editor Product:  %s\n", cfg.Editor.Product)
	fmt.Printf("Watcher:         enabled=%t debounce=%dms\n", cfg.Watcher.Enabled, cfg.Watcher.DebounceMS)
	fmt.Printf("Workspace Poll:  %dms\n", cfg.Workspace.PollIntervalMS)
	fmt.Printf("Inbox Path:      %s\n", cfg.Inbox.Path)
	fmt.Printf("Logging:         level=%s format=%s\n", cfg.Logging.Level, cfg.Logging.Format)
	fmt.Printf("Show QR:         %t\n", cfg.Pairing.ShowQRInTerminal)
}

const defaultConfigTemplate = `# ibridge configuration
# Copy this file to ~/.ibridge/config.yaml and modify as needed.
# All values can also be set via IBRIDGE_* environment variables,
# e.g. IBRIDGE_SERVER_PORT=9000.

server:
  host: 127.0.0.1
  port: 8765
  # Public WebSocket URL for QR pairing when tunnelling, e.g.
  # wss://your-tunnel.devtunnels.ms/ws
  external_ws_url: ""

debugger:
  # The editor's remote-debugging endpoint. Launch the editor with
  # --remote-debugging-port=<port> to enable it.
  host: 127.0.0.1
  port: 9222

editor:
  # Product name as it appears in window titles.
  product: Cursor
  # Auxiliary windows carrying this marker in their title are skipped.
  secondary_marker: Launchpad

watcher:
  enabled: true
  debounce_ms: 300

workspace:
  poll_interval_ms: 5000

inbox:
  # SQLite database path. Empty selects ~/.ibridge/inbox.db.
  path: ""

logging:
  level: info      # trace, debug, info, warn, error
  format: console  # console or json

pairing:
  show_qr_in_terminal: true
`

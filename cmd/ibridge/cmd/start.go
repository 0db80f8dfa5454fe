package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ibridge/internal/app"
	"ibridge/internal/config"
)

var (
	port          int
	debuggerPort  int
	product       string
	externalWSURL string
	noQR          bool
)

// startCmd represents the start command.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ibridge server",
	Long: `Start the ibridge server to attach to the editor's remote-debugging
endpoint and begin accepting connections from mobile devices.

The editor must be running with remote debugging enabled, for example:

  cursor --remote-debugging-port=9222

Example:
  ibridge start
  ibridge start --port 8765                # Custom server port
  ibridge start --debugger-port 9333       # Custom editor debug port
  ibridge start --product "Code"           # Bridge VS Code instead

VS Code Port Forwarding:
  When tunnelling the server, pass the public WebSocket URL so QR pairing
  points mobile clients at the tunnel:

  ibridge start --external-ws-url wss://your-tunnel.devtunnels.ms/ws`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().IntVar(&port, "port", 0, "server port for HTTP and WebSocket (default: 8765)")
	startCmd.Flags().IntVar(&debuggerPort, "debugger-port", 0, "editor remote-debugging port (default: 9222)")
	startCmd.Flags().StringVar(&product, "product", "", "editor product name as shown in window titles (default: Cursor)")
	startCmd.Flags().StringVar(&externalWSURL, "external-ws-url", "", "external WebSocket URL for tunnels (e.g., wss://tunnel.devtunnels.ms/ws)")
	startCmd.Flags().BoolVar(&noQR, "no-qr", false, "do not print the pairing QR code to the terminal")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with flags
	if port != 0 {
		cfg.Server.Port = port
	}
	if debuggerPort != 0 {
		cfg.Debugger.Port = debuggerPort
	}
	if product != "" {
		cfg.Editor.Product = product
	}
	if externalWSURL != "" {
		cfg.Server.ExternalWSURL = externalWSURL
	}
	if noQR {
		cfg.Pairing.ShowQRInTerminal = false
	}

	// Re-validate after overrides
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogging(cfg)

	log.Info().
		Str("version", version).
		Str("product", cfg.Editor.Product).
		Int("port", cfg.Server.Port).
		Int("debugger_port", cfg.Debugger.Port).
		Msg("starting ibridge")

	application, err := app.New(cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("application error: %w", err)
	}

	log.Info().Msg("ibridge stopped")
	return nil
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "console" || verbose {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

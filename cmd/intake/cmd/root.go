package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/corey/intake/internal/adapters/socket"
	"github.com/corey/intake/internal/config"
	"github.com/corey/intake/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "intake",
	Short:        "intake: directory inbound file source",
	Long:         "Watches or polls a directory and hands each eligible file to exactly one consumer.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.config/intake/config.toml or ./intake.toml)")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(receiveCmd)
	rootCmd.AddCommand(failCmd)
	rootCmd.AddCommand(ackCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig resolves and validates the configuration named by --config.
func loadConfig() (*config.Config, error) {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	return logger, nil
}

// socketPath returns the daemon socket for cfg.
func socketPath(cfg *config.Config) string {
	if cfg.Daemon.SocketPath != "" {
		return cfg.Daemon.SocketPath
	}
	return socket.SocketPath(cfg.Source.Directory)
}

// daemonClient returns a client for a running daemon, or an error telling
// the user to start one.
func daemonClient() (*socket.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	client := socket.NewClient(socketPath(cfg))
	if !client.Ping() {
		return nil, fmt.Errorf("daemon is not running (start it with: intake daemon start)")
	}
	return client, nil
}

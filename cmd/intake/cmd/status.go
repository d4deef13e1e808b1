package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/corey/intake/internal/adapters/socket"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status and counters",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := socket.NewClient(socketPath(cfg))

	if !client.Ping() {
		fmt.Println("intake daemon is not running")
		return nil
	}

	stats, err := client.Stats()
	if err != nil {
		return err
	}

	fmt.Print(formatStats(stats, time.Now()))
	return nil
}

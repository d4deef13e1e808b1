package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corey/intake/internal/adapters/socket"
	"github.com/corey/intake/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long:  "Shows the resolved config file, source directory, socket path and daemon status. No daemon required.",
	RunE:  runConfigShow,
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample config file",
	RunE:  runConfigInit,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the effective configuration as TOML",
	RunE:  runConfigDump,
}

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configDumpCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, path, exists, err := config.Load(configPath)
	if err != nil {
		return err
	}
	sockPath := socketPath(cfg)

	daemonStatus := fmt.Sprintf("%snot running%s", colorYellow, colorReset)
	if socket.NewClient(sockPath).Ping() {
		daemonStatus = fmt.Sprintf("%srunning%s", colorGreen, colorReset)
	}
	source := path
	if !exists {
		source = path + " (missing, using defaults)"
	}
	mode := "snapshot"
	if cfg.Watch.Enabled {
		mode = "watch"
	}

	fmt.Printf("%sintake config%s\n", colorBold, colorReset)
	fmt.Printf("  File:       %s\n", source)
	fmt.Printf("  Directory:  %s\n", cfg.Source.Directory)
	fmt.Printf("  Mode:       %s\n", mode)
	fmt.Printf("  Socket:     %s\n", sockPath)
	if cfg.Filter.Persistent {
		fmt.Printf("  Store:      %s\n", cfg.Filter.StorePath)
	}
	if cfg.Daemon.HTTPBind != "" {
		fmt.Printf("  HTTP:       %s\n", cfg.Daemon.HTTPBind)
	}
	fmt.Printf("  Daemon:     %s\n", daemonStatus)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return err
		}
	}
	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.CreateSample(path); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func runConfigDump(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := config.Encode(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

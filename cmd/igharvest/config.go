package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"igharvest/pkg/auth"
	"igharvest/pkg/config"
	"igharvest/pkg/ui"
)

// configCmd groups configuration file management
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with the defaults",
	Run:   runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Run:   runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Run:   runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	path := configFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			ui.PrintError("Failed to resolve home directory", err.Error())
			os.Exit(1)
		}
		path = filepath.Join(home, ".igharvest.yaml")
	}

	if _, err := os.Stat(path); err == nil {
		ui.PrintError("Config file already exists", path)
		os.Exit(1)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		ui.PrintError("Failed to write config file", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess(fmt.Sprintf("Created %s", path))
	ui.PrintInfo("Next", "set INSTAGRAM_ACCOUNTS or run 'igharvest auth add'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Session directory", cfg.Accounts.SessionDir)
	ui.PrintInfo("Request delay", cfg.RateLimit.RequestDelay.String())
	ui.PrintInfo("Login delay", cfg.RateLimit.LoginDelay.String())
	ui.PrintInfo("Headless", fmt.Sprintf("%t", cfg.Browser.Headless))
	ui.PrintInfo("Output directory", cfg.Output.BaseDirectory)
	ui.PrintInfo("Server address", cfg.Server.Addr)
	ui.PrintInfo("Log level", cfg.Logging.Level)
	if cfg.Accounts.Credentials != "" {
		ui.PrintInfo("Accounts", fmt.Sprintf("%d configured", countAccounts(cfg.Accounts.Credentials)))
	} else {
		ui.PrintWarning("Accounts", "none configured")
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if _, err := loadConfig(nil); err != nil {
		ui.PrintError("Configuration invalid", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Configuration valid")
}

func countAccounts(credentials string) int {
	parsed, err := auth.ParseCredentials(credentials)
	if err != nil {
		return 0
	}
	return len(parsed)
}

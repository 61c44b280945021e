package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/axellelanca/shortlink/internal/config"
	"github.com/axellelanca/shortlink/internal/logger"
)

// Cfg is the global variable that will contain the loaded configuration
// It will be accessible to all Cobra commands throughout the application
var Cfg *config.Config

// Logger is built from Cfg.Log once the configuration is loaded.
var Logger *zap.Logger

var configFile string

// RootCmd is the base command for the CLI application
// All other commands (run-server, create, inspect, migrate) are added as subcommands
var RootCmd = &cobra.Command{
	Use:   "shortlink",
	Short: "A URL shortener backed by snowflake ids",
	Long: `shortlink turns long URLs into base-62 aliases derived from unique,
time-ordered ids and resolves them through a cache in front of the database.`,
	SilenceUsage: true,
}

// Execute is the main entry point for the Cobra application
// It is called from 'main.go' and handles command execution and error handling
func Execute() {
	err := RootCmd.Execute()
	if Logger != nil {
		_ = Logger.Sync()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./configs/config.yaml)")

	// Subcommands register themselves from their own init() functions,
	// see cmd/server and cmd/cli.
}

// initConfig loads the configuration and the logger before any command runs.
func initConfig() {
	var err error
	Cfg, err = config.LoadConfig(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	Logger, err = logger.New(Cfg.Log.Level, Cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
}

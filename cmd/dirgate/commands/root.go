// Package commands provides the CLI commands for dirgate.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dirgate/dirgate/internal/config"
	"github.com/dirgate/dirgate/internal/logging"
	"github.com/dirgate/dirgate/internal/scope"
	"github.com/dirgate/dirgate/internal/storage"
	"github.com/dirgate/dirgate/pkg/types"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	prettyLogs bool
	logLevel   string
	workDir    string
)

var rootCmd = &cobra.Command{
	Use:   "dirgate",
	Short: "dirgate - permission gate for file manager actions",
	Long: `dirgate decides which filesystem actions a file manager may perform.
It checks actions against per-directory scope rules, queues prompts for
the user when consent is needed, and records durable "always allow"
grants.

Run 'dirgate serve' to start the HTTP API, or 'dirgate check' for a
one-shot decision.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&prettyLogs, "pretty-logs", false, "Human-readable log output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&workDir, "directory", "", "Managed directory (defaults to cwd)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("dirgate %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(scopeCmd)
	rootCmd.AddCommand(defaultsCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

// setup loads configuration, initializes logging, and opens the scope
// store every command needs.
func setup() (*types.Config, *scope.Store, error) {
	dir, err := GetWorkDir(workDir)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(level)
	logCfg.Pretty = prettyLogs
	logging.Init(logCfg)

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, nil, fmt.Errorf("create data directories: %w", err)
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = paths.StoragePath()
	}

	store, err := scope.NewStore(storage.New(dataDir))
	if err != nil {
		return nil, nil, fmt.Errorf("open scope store: %w", err)
	}
	if cfg.Defaults != nil {
		// Config-supplied defaults only seed a store that has none yet.
		if err := store.SeedDefaults(cfg.Defaults); err != nil {
			return nil, nil, err
		}
	}
	return cfg, store, nil
}

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dfbb/adfgvx/internal/config"
)

var (
	flagConfig string
	cfg        *config.Config
	logFile    *os.File
)

var rootCmd = &cobra.Command{
	Use:           "adfgvx",
	Short:         "ADFGVX cipher tool and IM cipher bot",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}
		return setupLogging(cfg.LogLevel, cfg.LogFile)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			logFile.Close()
			logFile = nil
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ~/.adfgvx/config.yaml)")

	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(squareCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(rebindCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file, falling back to defaults when it does not exist.
func loadConfig() (*config.Config, error) {
	c, err := config.Load(configPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return config.Defaults(), nil
	}
	return c, nil
}

func dataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".adfgvx")
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return filepath.Join(dataDir(), "config.yaml")
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func setupLogging(level, file string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	var w io.Writer = os.Stderr
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		logFile = f
		w = f
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}

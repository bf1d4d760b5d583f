package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cogvm/cog/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "cog",
	Short: "Cog is an assembly puzzle toolkit",
	Long: `Cog compiles and executes solutions for simple register machine puzzles,
locally or against the websocket execution service.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("puzzles", "", "Directory with puzzle board files (default: the embedded set)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn or error")
}

// loggerLevel reads the persistent log level flag.
func loggerLevel(cmd *cobra.Command) (slog.Level, error) {
	raw, _ := cmd.Flags().GetString("log-level")
	level, err := logging.ParseLevel(raw)
	if err != nil {
		return 0, fmt.Errorf("--log-level: %w", err)
	}
	return level, nil
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	level, err := loggerLevel(cmd)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

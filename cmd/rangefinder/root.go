package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-rangefinder/internal/config"
	"github.com/teslashibe/go-rangefinder/internal/log"
)

// Version is the application version.
const Version = "0.1.0"

var (
	logLevel string
	jsonLogs bool
)

var rootCmd = &cobra.Command{
	Use:     "rangefinder",
	Short:   "Monocular distance estimation for detected objects",
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Init(logLevel, jsonLogs)
	},
	SilenceUsage: true,
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.String(config.EnvLogLevel, config.DefaultLog), "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Write logs as JSON")
}

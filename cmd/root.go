package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tgkw",
	Short: "Search a Telegram channel for a keyword and export the matches to Word",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.toml)")
}

func newLogger() *log.Logger {
	level := log.InfoLevel
	if os.Getenv("TGKW_DEBUG") != "" {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stdout, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		ReportCaller:    level == log.DebugLevel,
	})
}

func Execute() {
	logger := newLogger()
	log.SetDefault(logger)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = log.WithContext(ctx, logger)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		log.Fatal(err)
	}
}

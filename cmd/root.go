// Package cmd defines and implements the CLI commands for the metacrawler executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/metacrawler/internal/app"
	"github.com/JakeFAU/metacrawler/internal/config"
	"github.com/JakeFAU/metacrawler/internal/logging"
)

// Runner is the part of *app.App the crawl command drives. Tests swap in a
// fake through newRunner.
type Runner interface {
	Run(ctx context.Context) (app.Result, error)
	Close(ctx context.Context) error
}

// newRunner is the application factory. It's a variable so tests can replace it.
var newRunner = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (Runner, error) {
	return app.New(ctx, cfg, logger)
}

// newRootCmd creates the root command and binds its persistent flags onto v.
func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metacrawler",
		Short: "Crawls one web domain and exports page metadata.",
		Long: `metacrawler walks a single domain breadth-first from a seed URL, extracts
title, description, social-card, canonical and robots metadata from every HTML
page, and writes results.json, results.csv, skipped.csv and errors.csv.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file (default searches ./metacrawler.yaml, $HOME/.metacrawler, /etc/metacrawler)")
	flags.Bool("dev", false, "human-friendly console logging")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	mustBind(v, "logging.development", flags.Lookup("dev"))
	mustBind(v, "logging.level", flags.Lookup("log-level"))

	cmd.AddCommand(newCrawlCmd(v))
	return cmd
}

// Execute runs the CLI and exits non-zero on failure. SIGINT and SIGTERM
// cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(config.New()).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "metacrawler:", err)
		os.Exit(1)
	}
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Development, cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

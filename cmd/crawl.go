package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/metacrawler/internal/config"
	"github.com/JakeFAU/metacrawler/internal/crawler"
)

// newCrawlCmd creates the 'crawl' subcommand. Every flag is bound to its
// config key so flags override the config file and environment.
func newCrawlCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawls a domain from a seed URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, v)
		},
	}

	flags := cmd.Flags()
	flags.String("start-url", "", "seed URL (http or https)")
	flags.String("domain", "", "hostname to stay on (default: the seed's hostname)")
	flags.Int("max-depth", 0, "maximum link depth from the seed, 0 for unbounded")
	flags.Int("concurrency", crawler.DefaultConcurrency, "number of concurrent fetch workers")
	flags.Duration("interval", crawler.DefaultInterval, "minimum delay between dispatches per worker")
	flags.Duration("timeout", crawler.DefaultTimeout, "per-fetch timeout")
	flags.String("user-agent", crawler.DefaultUserAgent, "User-Agent header")
	flags.Bool("respect-robots", true, "honour robots.txt disallow rules")
	flags.String("out", "out", "output directory or gs://bucket/prefix")
	flags.Bool("dry-run", false, "crawl without writing artifacts")
	flags.String("status-addr", "", "serve status and metrics on this address while crawling")

	for key, name := range map[string]string{
		"crawl.start_url":      "start-url",
		"crawl.domain":         "domain",
		"crawl.max_depth":      "max-depth",
		"crawl.concurrency":    "concurrency",
		"crawl.interval":       "interval",
		"crawl.timeout":        "timeout",
		"crawl.user_agent":     "user-agent",
		"crawl.respect_robots": "respect-robots",
		"output.dir":           "out",
		"output.dry_run":       "dry-run",
		"status.addr":          "status-addr",
	} {
		mustBind(v, key, flags.Lookup(name))
	}
	return cmd
}

func runCrawl(cmd *cobra.Command, v *viper.Viper) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(v, path)
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return err
	}
	if used := v.ConfigFileUsed(); used != "" {
		logger.Info("using config file", zap.String("path", used))
	}

	ctx := cmd.Context()
	runner, err := newRunner(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	defer func() {
		if cerr := runner.Close(context.WithoutCancel(ctx)); cerr != nil {
			logger.Warn("failed to close application services", zap.Error(cerr))
		}
	}()

	result, err := runner.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fields := []zap.Field{
		zap.String("run_id", result.RunID.String()),
		zap.Int("records", result.Summary.Records),
		zap.Int("skipped", result.Summary.Skipped),
		zap.Int("errors", result.Summary.Errors),
		zap.Duration("elapsed", result.Summary.Duration),
		zap.Bool("interrupted", result.Interrupted),
	}
	for _, artifact := range result.Artifacts {
		fields = append(fields, zap.String(artifact.Name, artifact.URI))
	}
	logger.Info("crawl finished", fields...)
	return nil
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}

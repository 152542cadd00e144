// Package config loads and validates metacrawler configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/metacrawler/internal/crawler"
)

// EnvPrefix is prepended to every environment override, e.g.
// METACRAWLER_CRAWL_MAX_DEPTH.
const EnvPrefix = "METACRAWLER"

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Crawl   CrawlSection  `mapstructure:"crawl"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
	Status  StatusConfig  `mapstructure:"status"`
	Notify  NotifyConfig  `mapstructure:"notify"`
}

// CrawlSection mirrors crawler.CrawlConfig in its external form.
type CrawlSection struct {
	StartURL      string        `mapstructure:"start_url"`
	Domain        string        `mapstructure:"domain"`
	MaxDepth      int           `mapstructure:"max_depth"`
	Concurrency   int           `mapstructure:"concurrency"`
	Interval      time.Duration `mapstructure:"interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
	UserAgent     string        `mapstructure:"user_agent"`
	RespectRobots bool          `mapstructure:"respect_robots"`
}

// OutputConfig sets where export artifacts are written. Dir is a local
// directory or a gs://bucket/prefix location. DryRun discards artifacts.
type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	DryRun bool   `mapstructure:"dry_run"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// StatusConfig controls the optional status HTTP server. An empty Addr
// disables it.
type StatusConfig struct {
	Addr string `mapstructure:"addr"`
}

// NotifyConfig controls the run-completion notice.
type NotifyConfig struct {
	PubSub PubSubConfig `mapstructure:"pubsub"`
}

// PubSubConfig names the topic that receives completion notices. Both fields
// empty disables publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// Enabled reports whether a topic is configured.
func (p PubSubConfig) Enabled() bool {
	return p.ProjectID != "" || p.Topic != ""
}

// New returns a Viper instance with defaults and environment binding applied.
// Callers bind flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// SetDefaults registers every known key so environment overrides are seen by
// Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("crawl.start_url", "")
	v.SetDefault("crawl.domain", "")
	v.SetDefault("crawl.max_depth", 0)
	v.SetDefault("crawl.concurrency", crawler.DefaultConcurrency)
	v.SetDefault("crawl.interval", crawler.DefaultInterval)
	v.SetDefault("crawl.timeout", crawler.DefaultTimeout)
	v.SetDefault("crawl.user_agent", crawler.DefaultUserAgent)
	v.SetDefault("crawl.respect_robots", true)
	v.SetDefault("output.dir", "out")
	v.SetDefault("output.dry_run", false)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("status.addr", "")
	v.SetDefault("notify.pubsub.project_id", "")
	v.SetDefault("notify.pubsub.topic", "")
}

// Load reads the config file, unmarshals v, and validates the result. An
// explicit path must exist; without one, metacrawler.yaml is looked up in the
// working directory, $HOME/.metacrawler and /etc/metacrawler and may be absent.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = New()
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("metacrawler")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.metacrawler")
		v.AddConfigPath("/etc/metacrawler")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Crawl.StartURL) == "" {
		return errors.New("crawl.start_url must be set")
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return errors.New("output.dir must be set")
	}
	if c.Logging.Level != "" {
		if _, err := zap.ParseAtomicLevel(c.Logging.Level); err != nil {
			return fmt.Errorf("logging.level: %w", err)
		}
	}
	if p := c.Notify.PubSub; p.Enabled() && (p.ProjectID == "" || p.Topic == "") {
		return errors.New("notify.pubsub requires both project_id and topic")
	}
	if _, err := c.CrawlConfig(); err != nil {
		return err
	}
	return nil
}

// CrawlConfig derives the immutable crawler.CrawlConfig for the run.
func (c Config) CrawlConfig() (crawler.CrawlConfig, error) {
	cfg, err := crawler.NewCrawlConfig(crawler.CrawlConfig{
		StartURL:      c.Crawl.StartURL,
		Domain:        c.Crawl.Domain,
		MaxDepth:      c.Crawl.MaxDepth,
		Concurrency:   c.Crawl.Concurrency,
		Interval:      c.Crawl.Interval,
		Timeout:       c.Crawl.Timeout,
		UserAgent:     c.Crawl.UserAgent,
		RespectRobots: c.Crawl.RespectRobots,
	})
	if err != nil {
		return crawler.CrawlConfig{}, fmt.Errorf("crawl config: %w", err)
	}
	return cfg, nil
}

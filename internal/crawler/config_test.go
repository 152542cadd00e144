package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCrawlConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := NewCrawlConfig(CrawlConfig{StartURL: " https://Docs.Example.com/start "})
	require.NoError(t, err)
	assert.Equal(t, "https://Docs.Example.com/start", cfg.StartURL)
	assert.Equal(t, "docs.example.com", cfg.Domain)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
	assert.Zero(t, cfg.MaxDepth)
}

func TestNewCrawlConfigRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  CrawlConfig
		seed bool
	}{
		{"empty seed", CrawlConfig{}, true},
		{"ftp seed", CrawlConfig{StartURL: "ftp://example.com/"}, true},
		{"no host", CrawlConfig{StartURL: "https:///path"}, true},
		{"negative depth", CrawlConfig{StartURL: "https://example.com/", MaxDepth: -1}, false},
		{"negative concurrency", CrawlConfig{StartURL: "https://example.com/", Concurrency: -2}, false},
		{"negative interval", CrawlConfig{StartURL: "https://example.com/", Interval: -time.Second}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewCrawlConfig(tc.cfg)
			require.Error(t, err)
			if tc.seed {
				assert.ErrorIs(t, err, ErrInvalidSeed)
			}
		})
	}
}

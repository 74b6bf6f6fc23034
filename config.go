package glyphweave

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config configures a Weave instance. Zero values fall back to sensible
// defaults; only Paths is required.
type Config struct {
	// Paths contains data directories. Currently only Paths[0] is used.
	Paths []string `yaml:"paths"`
	// MinimumFreeGB is the free-space floor checked at startup.
	MinimumFreeGB int `yaml:"minimumFreeGB"`

	// MaxPieceBytes bounds each text piece before compression. Together
	// with the frame overhead it must fit the ledger's payload limit.
	MaxPieceBytes int `yaml:"maxPieceBytes"`
	// Compression selects the codec: "lzma" (default) or "zstd".
	Compression string `yaml:"compression"`

	// MaxRetries bounds submission attempts per glyph.
	MaxRetries int `yaml:"maxRetries"`
	// BaseRetryDelay scales the backoff between attempts.
	BaseRetryDelay time.Duration `yaml:"baseRetryDelay"`
	// InterSubmitDelay paces successful submissions.
	InterSubmitDelay time.Duration `yaml:"interSubmitDelay"`
	// SubmitTimeout bounds a single submission attempt.
	SubmitTimeout time.Duration `yaml:"submitTimeout"`

	// FeedTTL is how long built feeds are served from cache.
	FeedTTL time.Duration `yaml:"feedTTL"`
	// ScrollCacheSize is how many reconstructed scrolls are kept in memory.
	ScrollCacheSize int `yaml:"scrollCacheSize"`

	// Logger is an optional structured logger. If nil, a stderr logger is
	// used.
	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) applyDefaults() {
	if c.MinimumFreeGB == 0 {
		c.MinimumFreeGB = 1
	}
	if c.MaxPieceBytes == 0 {
		c.MaxPieceBytes = 450
	}
	if c.Compression == "" {
		c.Compression = "lzma"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BaseRetryDelay == 0 {
		c.BaseRetryDelay = time.Second
	}
	if c.InterSubmitDelay == 0 {
		c.InterSubmitDelay = time.Second
	}
	if c.SubmitTimeout == 0 {
		c.SubmitTimeout = 30 * time.Second
	}
	if c.FeedTTL == 0 {
		c.FeedTTL = 30 * time.Second
	}
	if c.ScrollCacheSize == 0 {
		c.ScrollCacheSize = 32
	}
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("reading config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parsing config file %q: %w", path, err)
	}
	return config, nil
}

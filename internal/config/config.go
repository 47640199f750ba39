package config

import "time"

// Config holds runtime settings for the photofeed client.
type Config struct {
	GatewayURL string
	CachePath  string

	S3Region    string
	S3Bucket    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	PresignTTL  time.Duration

	PostMaxBytes   int64
	AvatarMaxBytes int64
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.GatewayURL = "ws://127.0.0.1:8080/ws"
	c.CachePath = "photofeed.db"
	c.S3Region = "us-east-1"
	c.S3Bucket = "photofeed-images"
	c.PresignTTL = 15 * time.Minute
	c.PostMaxBytes = 1_000_000
	c.AvatarMaxBytes = 2_000_000
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

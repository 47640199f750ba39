package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/photofeed/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations are
// given in seconds; zero values leave the corresponding Config field alone.
type JsonConfig struct {
	GatewayURL     string `json:"gateway_url"`
	CachePath      string `json:"cache_path"`
	S3Region       string `json:"s3_region"`
	S3Bucket       string `json:"s3_bucket"`
	S3Endpoint     string `json:"s3_endpoint"`
	S3AccessKey    string `json:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key"`
	PresignTTLSecs int    `json:"presign_ttl"`
	PostMaxBytes   int64  `json:"post_max_bytes"`
	AvatarMaxBytes int64  `json:"avatar_max_bytes"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c/-config flags; without them nothing is loaded.
// Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.GatewayURL != "" {
		cfg.GatewayURL = jc.GatewayURL
	}
	if jc.CachePath != "" {
		cfg.CachePath = jc.CachePath
	}
	if jc.S3Region != "" {
		cfg.S3Region = jc.S3Region
	}
	if jc.S3Bucket != "" {
		cfg.S3Bucket = jc.S3Bucket
	}
	if jc.S3Endpoint != "" {
		cfg.S3Endpoint = jc.S3Endpoint
	}
	if jc.S3AccessKey != "" {
		cfg.S3AccessKey = jc.S3AccessKey
	}
	if jc.S3SecretKey != "" {
		cfg.S3SecretKey = jc.S3SecretKey
	}
	if jc.PresignTTLSecs > 0 {
		cfg.PresignTTL = time.Duration(jc.PresignTTLSecs) * time.Second
	}
	if jc.PostMaxBytes > 0 {
		cfg.PostMaxBytes = jc.PostMaxBytes
	}
	if jc.AvatarMaxBytes > 0 {
		cfg.AvatarMaxBytes = jc.AvatarMaxBytes
	}
}

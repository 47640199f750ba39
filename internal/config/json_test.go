package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"gateway_url":    "ws://gw.example:9000/ws",
		"s3_bucket":      "pics",
		"presign_ttl":    600,
		"post_max_bytes": 500_000,
	})

	t.Run("loads from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "ws://gw.example:9000/ws", cfg.GatewayURL)
		assert.Equal(t, "pics", cfg.S3Bucket)
		assert.Equal(t, 10*time.Minute, cfg.PresignTTL)
		assert.Equal(t, int64(500_000), cfg.PostMaxBytes)
		// Omitted keys leave defaults alone.
		assert.Equal(t, "photofeed.db", cfg.CachePath)
		assert.Equal(t, int64(2_000_000), cfg.AvatarMaxBytes)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			GatewayURL: "ws://defaults:1234/ws",
			S3Bucket:   "keep",
		}
		parseJson(cfg)

		assert.Equal(t, "ws://defaults:1234/ws", cfg.GatewayURL)
		assert.Equal(t, "keep", cfg.S3Bucket)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}

// Package config loads runtime configuration for the photofeed client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-g string   websocket URL of the realtime gateway
//	-d string   path to the local snapshot cache database
//
// # JSON schema
//
// Durations are given in seconds, byte ceilings in bytes:
//
//	{
//	  "gateway_url": "ws://127.0.0.1:8080/ws",
//	  "cache_path": "photofeed.db",
//	  "s3_region": "us-east-1",
//	  "s3_bucket": "photofeed-images",
//	  "s3_endpoint": "",
//	  "s3_access_key": "",
//	  "s3_secret_key": "",
//	  "presign_ttl": 900,
//	  "post_max_bytes": 1000000,
//	  "avatar_max_bytes": 2000000
//	}
package config

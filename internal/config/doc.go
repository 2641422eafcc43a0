// Package config loads the synq client configuration.
//
// # Overview
//
// Settings live in a TOML file. Load reads it, trims every value, and fills
// anything missing or blank from Default. A missing file is not an error.
//
// # Configuration Discovery
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/synq/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # TOML Format
//
//	api_bind = "127.0.0.1:7489"        # todo API host:port or URL
//	poll_seconds = 10                  # 0 disables background refresh
//	auto_fetch = true                  # fetch once at startup
//	key = "id"                         # identity field of records
//	log_file = "~/.local/share/synq/synq.log"   # "-" logs to stderr
//	log_level = "info"
//	request_timeout_seconds = 5
//	retries = 2                        # list retries on 5xx/transport errors
//
// # Path Expansion
//
// Paths starting with ~ are expanded against the home directory and every
// path is made absolute.
package config

// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/shelfwise/config.yaml",
	"/etc/shelfwise/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults, applied before file and env.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Cache: CacheConfig{
			Backend:           CacheBackendRedis,
			RedisAddr:         "127.0.0.1:6379",
			DialTimeout:       2 * time.Second,
			OpTimeout:         250 * time.Millisecond,
			UserDB:            1,
			RecommendationDB:  2,
			GatewayDB:         3,
			HistoryTTL:        time.Hour,
			ProfileTTL:        time.Hour,
			UserVectorTTL:     time.Hour,
			RecommendationTTL: time.Hour,
			CatalogTTL:        24 * time.Hour,
			GatewayTTL:        30 * time.Second,
			GatewayStaleTTL:   time.Hour,
		},
		Recommend: RecommendConfig{
			DefaultK:               10,
			MaxK:                   100,
			Workers:                4,
			QueueDepth:             64,
			ComputeTimeout:         5 * time.Second,
			CatalogSource:          CatalogSourceUpstream,
			CatalogPath:            "",
			CatalogRefreshInterval: time.Minute,
			UserDataURL:            "http://127.0.0.1:8081",
			UpstreamTimeout:        2 * time.Second,
		},
		Gateway: GatewayConfig{
			APIKeys:         []string{},
			RecommendURL:    "http://127.0.0.1:8082",
			UpstreamTimeout: 5 * time.Second,
			DefaultK:        10,
			MaxK:            100,
		},
		UserData: UserDataConfig{
			DataDir:  "/data/userdata",
			InMemory: false,
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
	}
}

// Load is the entry point used by the binaries.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in values from defaultConfig
//  2. Config File: optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment Variables: explicit names listed in envTransformFunc
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"gateway.api_keys",
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Cache
	"cache_backend":            "cache.backend",
	"cache_redis_addr":         "cache.redis_addr",
	"cache_redis_password":     "cache.redis_password",
	"cache_dial_timeout":       "cache.dial_timeout",
	"cache_op_timeout":         "cache.op_timeout",
	"cache_user_db":            "cache.user_db",
	"cache_recommendation_db":  "cache.recommendation_db",
	"cache_gateway_db":         "cache.gateway_db",
	"cache_history_ttl":        "cache.history_ttl",
	"cache_profile_ttl":        "cache.profile_ttl",
	"cache_user_vector_ttl":    "cache.user_vector_ttl",
	"cache_recommendation_ttl": "cache.recommendation_ttl",
	"cache_catalog_ttl":        "cache.catalog_ttl",
	"cache_gateway_ttl":        "cache.gateway_ttl",
	"cache_gateway_stale_ttl":  "cache.gateway_stale_ttl",

	// Recommendation service
	"recommend_default_k":                "recommend.default_k",
	"recommend_max_k":                    "recommend.max_k",
	"recommend_workers":                  "recommend.workers",
	"recommend_queue_depth":              "recommend.queue_depth",
	"recommend_compute_timeout":          "recommend.compute_timeout",
	"recommend_catalog_source":           "recommend.catalog_source",
	"recommend_catalog_path":             "recommend.catalog_path",
	"recommend_catalog_refresh_interval": "recommend.catalog_refresh_interval",
	"userdata_service_url":               "recommend.userdata_url",
	"recommend_upstream_timeout":         "recommend.upstream_timeout",

	// Gateway
	"api_keys":                   "gateway.api_keys",
	"recommendation_service_url": "gateway.recommend_url",
	"gateway_upstream_timeout":   "gateway.upstream_timeout",
	"gateway_default_k":          "gateway.default_k",
	"gateway_max_k":              "gateway.max_k",

	// User-data store
	"userdata_data_dir":  "userdata.data_dir",
	"userdata_in_memory": "userdata.in_memory",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",
}

// envTransformFunc maps an environment variable name to its config path.
// Unmapped variables return "" and are skipped so unrelated environment
// does not leak into the configuration.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - CACHE_REDIS_ADDR -> cache.redis_addr
//   - API_KEYS -> gateway.api_keys
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

// Package config loads the shared configuration used by the gateway,
// recommender and user-data binaries. Each binary reads the sections it
// needs; unknown sections are ignored.
//
// Precedence is ENV > config file > built-in defaults. See LoadWithKoanf.
package config

import (
	"fmt"
	"time"
)

// Cache backend kinds.
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// Catalog sources for the recommender.
const (
	CatalogSourceUpstream = "upstream"
	CatalogSourceFile     = "file"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Cache     CacheConfig     `koanf:"cache"`
	Recommend RecommendConfig `koanf:"recommend"`
	Gateway   GatewayConfig   `koanf:"gateway"`
	UserData  UserDataConfig  `koanf:"userdata"`
	Security  SecurityConfig  `koanf:"security"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig mirrors logging.Config for file/env loading.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// CacheConfig configures the shared cache backend and per-tier TTLs.
//
// Each namespace lives in its own Redis logical database so TTL and eviction
// policy can differ per tier.
type CacheConfig struct {
	Backend       string        `koanf:"backend" validate:"oneof=redis memory"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	DialTimeout   time.Duration `koanf:"dial_timeout" validate:"gt=0"`
	OpTimeout     time.Duration `koanf:"op_timeout" validate:"gt=0"`

	UserDB           int `koanf:"user_db" validate:"min=0,max=15"`
	RecommendationDB int `koanf:"recommendation_db" validate:"min=0,max=15"`
	GatewayDB        int `koanf:"gateway_db" validate:"min=0,max=15"`

	HistoryTTL        time.Duration `koanf:"history_ttl" validate:"gt=0"`
	ProfileTTL        time.Duration `koanf:"profile_ttl" validate:"gt=0"`
	UserVectorTTL     time.Duration `koanf:"user_vector_ttl" validate:"gt=0"`
	RecommendationTTL time.Duration `koanf:"recommendation_ttl" validate:"gt=0"`
	CatalogTTL        time.Duration `koanf:"catalog_ttl" validate:"gt=0"`
	GatewayTTL        time.Duration `koanf:"gateway_ttl" validate:"gt=0"`
	GatewayStaleTTL   time.Duration `koanf:"gateway_stale_ttl" validate:"gt=0"`
}

// RecommendConfig configures the recommendation service.
type RecommendConfig struct {
	DefaultK int `koanf:"default_k" validate:"min=1"`
	MaxK     int `koanf:"max_k" validate:"min=1"`

	// Compute pool sizing. QueueDepth bounds pending jobs; a full queue
	// rejects new work instead of growing.
	Workers        int           `koanf:"workers" validate:"min=1"`
	QueueDepth     int           `koanf:"queue_depth" validate:"min=1"`
	ComputeTimeout time.Duration `koanf:"compute_timeout" validate:"gt=0"`

	CatalogSource          string        `koanf:"catalog_source" validate:"oneof=upstream file"`
	CatalogPath            string        `koanf:"catalog_path"`
	CatalogRefreshInterval time.Duration `koanf:"catalog_refresh_interval" validate:"gt=0"`

	UserDataURL     string        `koanf:"userdata_url" validate:"omitempty,url"`
	UpstreamTimeout time.Duration `koanf:"upstream_timeout" validate:"gt=0"`
}

// GatewayConfig configures the public gateway.
type GatewayConfig struct {
	APIKeys         []string      `koanf:"api_keys"`
	RecommendURL    string        `koanf:"recommend_url" validate:"omitempty,url"`
	UpstreamTimeout time.Duration `koanf:"upstream_timeout" validate:"gt=0"`
	DefaultK        int           `koanf:"default_k" validate:"min=1"`
	MaxK            int           `koanf:"max_k" validate:"min=1"`
}

// UserDataConfig configures the user-data store.
type UserDataConfig struct {
	DataDir  string `koanf:"data_dir"`
	InMemory bool   `koanf:"in_memory"`
}

// SecurityConfig holds rate limiting and CORS settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

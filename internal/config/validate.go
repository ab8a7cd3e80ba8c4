// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks field constraints and the cross-field rules struct tags
// cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}

	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	if err := c.validateGateway(); err != nil {
		return err
	}
	return c.validateSecurity()
}

func (c *Config) validateCache() error {
	if c.Cache.Backend == CacheBackendRedis && c.Cache.RedisAddr == "" {
		return fmt.Errorf("CACHE_REDIS_ADDR is required when CACHE_BACKEND=redis")
	}

	dbs := map[int]string{}
	for name, db := range map[string]int{
		"user":           c.Cache.UserDB,
		"recommendation": c.Cache.RecommendationDB,
		"gateway":        c.Cache.GatewayDB,
	} {
		if other, dup := dbs[db]; dup {
			return fmt.Errorf("cache namespaces %s and %s share redis db %d", other, name, db)
		}
		dbs[db] = name
	}

	if c.Cache.GatewayStaleTTL < c.Cache.GatewayTTL {
		return fmt.Errorf("CACHE_GATEWAY_STALE_TTL (%v) must not be shorter than CACHE_GATEWAY_TTL (%v)",
			c.Cache.GatewayStaleTTL, c.Cache.GatewayTTL)
	}
	return nil
}

func (c *Config) validateRecommend() error {
	if c.Recommend.DefaultK > c.Recommend.MaxK {
		return fmt.Errorf("RECOMMEND_DEFAULT_K (%d) exceeds RECOMMEND_MAX_K (%d)",
			c.Recommend.DefaultK, c.Recommend.MaxK)
	}
	if c.Recommend.CatalogSource == CatalogSourceFile && c.Recommend.CatalogPath == "" {
		return fmt.Errorf("RECOMMEND_CATALOG_PATH is required when RECOMMEND_CATALOG_SOURCE=file")
	}
	return nil
}

func (c *Config) validateGateway() error {
	if c.Gateway.DefaultK > c.Gateway.MaxK {
		return fmt.Errorf("GATEWAY_DEFAULT_K (%d) exceeds GATEWAY_MAX_K (%d)",
			c.Gateway.DefaultK, c.Gateway.MaxK)
	}
	for _, key := range c.Gateway.APIKeys {
		if len(key) < 16 {
			return fmt.Errorf("gateway API keys must be at least 16 characters")
		}
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive when rate limiting is enabled")
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive when rate limiting is enabled")
	}
	return nil
}

// formatValidationError flattens validator errors into one readable message.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value: %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

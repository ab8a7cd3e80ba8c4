// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package cache

import (
	"fmt"
	"time"

	"github.com/tomtom215/shelfwise/internal/config"
)

// NewFromConfig builds a Mediator with one backend per namespace.
//
// With the redis backend each namespace gets its own client bound to its
// configured logical database. With the memory backend all namespaces share
// one process-local store; key prefixes keep them disjoint.
func NewFromConfig(cfg config.CacheConfig) (*Mediator, error) {
	switch cfg.Backend {
	case config.CacheBackendRedis:
		dbs := map[Namespace]int{
			NamespaceUser:           cfg.UserDB,
			NamespaceRecommendation: cfg.RecommendationDB,
			NamespaceGateway:        cfg.GatewayDB,
		}
		backends := make(map[Namespace]Backend, len(dbs))
		for ns, db := range dbs {
			backends[ns] = NewRedisBackend(RedisOptions{
				Addr:        cfg.RedisAddr,
				Password:    cfg.RedisPassword,
				DB:          db,
				DialTimeout: cfg.DialTimeout,
			})
		}
		return NewMediator(backends, cfg.OpTimeout), nil

	case config.CacheBackendMemory:
		return NewMemoryMediator(cfg.OpTimeout), nil

	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}
}

// NewMemoryMediator returns a Mediator whose namespaces share one
// MemoryBackend. Used by tests and single-process deployments.
func NewMemoryMediator(opTimeout time.Duration) *Mediator {
	mem := NewMemoryBackend(0)
	backends := make(map[Namespace]Backend, len(Namespaces))
	for _, ns := range Namespaces {
		backends[ns] = mem
	}
	return NewMediator(backends, opTimeout)
}

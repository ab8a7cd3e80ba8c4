// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

// Package cache mediates every service's access to the shared cache.
//
// The cache is split into namespaces (user, recommendation, gateway), each
// bound to its own Backend. With Redis every namespace is a separate logical
// database, so TTL and eviction policy can differ per tier and keys of two
// services can never collide.
//
// Reads go through GetOrCompute, which deduplicates concurrent misses for the
// same key inside the process and degrades to calling compute directly when
// the backend is unreachable.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Backend is one logical partition of the shared cache. Values are opaque
// byte slices and are always replaced as a whole.
type Backend interface {
	// Get returns the value and true on a hit. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys and reports how many existed.
	Delete(ctx context.Context, keys ...string) (int, error)

	// DeleteMatch removes every key matching a glob pattern (*, ?, [...]).
	DeleteMatch(ctx context.Context, pattern string) (int, error)

	// Close releases backend resources.
	Close() error
}

// Namespace identifies one service's cache partition.
type Namespace string

// Cache namespaces, one per service.
const (
	NamespaceUser           Namespace = "user"
	NamespaceRecommendation Namespace = "recommendation"
	NamespaceGateway        Namespace = "gateway"
)

// Namespaces lists every namespace in a stable order.
var Namespaces = []Namespace{NamespaceUser, NamespaceRecommendation, NamespaceGateway}

// Key builds a namespaced key: Key(NamespaceRecommendation, 42, 7, 10)
// yields "recommendation:42:7:10".
func Key(ns Namespace, parts ...any) string {
	var b strings.Builder
	b.WriteString(string(ns))
	for _, p := range parts {
		b.WriteByte(':')
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// Prefix is Key followed by the separator, matching every key below it.
// Prefix(NamespaceUser, 42) yields "user:42:".
func Prefix(ns Namespace, parts ...any) string {
	return Key(ns, parts...) + ":"
}

// escapeGlob quotes glob metacharacters so a literal prefix can be used
// inside a match pattern.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

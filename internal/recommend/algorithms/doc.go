// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

// Package algorithms implements the feature builder and ranker used by the
// recommendation engine.
//
//   - TermVectorizer: TF-IDF term vectors over category, tags, name and
//     description; user vectors are weighted means of interacted products
//   - CosineRanker: cosine top-K with exclusion and a popularity fallback
//     for cold-start users
//
// Both are pure: no I/O and no shared state. Callers own caching.
package algorithms

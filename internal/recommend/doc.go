// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

// Package recommend implements the recommendation service core: the
// versioned catalog, the compute pool and the orchestration of feature
// building and ranking behind the shared cache.
//
// # Architecture
//
// A Recommend call resolves three cached artifacts, each keyed by the
// active catalog version:
//
//   - recommendation:catalog:<version>: product vectors, built once per version
//   - user:<user_id>:<version>: the user's profile vector
//   - recommendation:<user_id>:<version>:<k>: the final ranked Result
//
// Each artifact is computed at most once per key per process and only on
// the bounded compute Pool. A full pool fails fast with ErrOverloaded.
//
// # Cold Start
//
// A user without usable history has a zero profile vector. The ranker then
// orders by catalog popularity and marks the Result with StrategyPopularity.
//
// # Usage
//
//	pool := recommend.NewPool(cfg.Recommend.Workers, cfg.Recommend.QueueDepth)
//	store := recommend.NewCatalogStore(algorithms.NewTermVectorizer(), mediator, pool, cfg.Cache.CatalogTTL)
//	engine, err := recommend.NewEngine(recommend.EngineConfig{DefaultK: 10, MaxK: 100}, recommend.EngineDeps{
//	    Catalog: store,
//	    History: historyClient,
//	    Builder: algorithms.NewTermVectorizer(),
//	    Ranker:  algorithms.NewCosineRanker(),
//	    Cache:   mediator,
//	    Pool:    pool,
//	})
//
//	res, err := engine.Recommend(ctx, 42, 10)
//
// # Thread Safety
//
// Engine, CatalogStore and Pool are safe for concurrent use. Catalog swaps
// are atomic; readers see either the old or the new snapshot.
package recommend

// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package userdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/shelfwise/internal/config"
	"github.com/tomtom215/shelfwise/internal/recommend"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	store, err := NewBadgerStore(db)
	if err != nil {
		t.Fatalf("NewBadgerStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedProducts(t *testing.T, s Store, ids ...int) {
	t.Helper()
	products := make([]recommend.Product, len(ids))
	for i, id := range ids {
		products[i] = recommend.Product{ProductID: id, ProductName: "product", Category: "misc"}
	}
	if _, err := s.UpsertProducts(context.Background(), products); err != nil {
		t.Fatalf("UpsertProducts: %v", err)
	}
}

func TestBadgerStore_UserRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := &User{UserID: 42, Name: "Ada", Age: 36, Preferences: []string{"books"}, CreatedAt: time.Unix(1700000000, 0).UTC()}
	if err := s.CreateUser(ctx, in); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	out, err := s.GetUser(ctx, 42)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if out.Name != "Ada" || out.Age != 36 || !out.CreatedAt.Equal(in.CreatedAt) || len(out.Preferences) != 1 {
		t.Errorf("round trip mismatch: %+v", out)
	}

	if err := s.CreateUser(ctx, in); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate create: err = %v, want ErrUserExists", err)
	}
	if _, err := s.GetUser(ctx, 7); !errors.Is(err, recommend.ErrUserNotFound) {
		t.Errorf("unknown user: err = %v, want ErrUserNotFound", err)
	}
}

func TestBadgerStore_InteractionsOrderedOldestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProducts(t, s, 1, 2, 3)
	_ = s.CreateUser(ctx, &User{UserID: 1, Name: "u1"})
	_ = s.CreateUser(ctx, &User{UserID: 11, Name: "u11"})

	base := time.Unix(1700000000, 0)
	events := []InteractionEvent{
		{ProductID: 2, Type: recommend.InteractionCart, Timestamp: base.Add(2 * time.Second)},
		{ProductID: 1, Type: recommend.InteractionView, Timestamp: base},
		{ProductID: 3, Type: recommend.InteractionPurchase, Quantity: 2, Timestamp: base.Add(time.Second)},
		{ProductID: 3, Type: recommend.InteractionView, Timestamp: base.Add(time.Second)},
	}
	for _, ev := range events {
		if err := s.AppendInteraction(ctx, 1, ev); err != nil {
			t.Fatalf("AppendInteraction: %v", err)
		}
	}
	// Shares the "1" digit prefix with user 1 and must not leak into its history.
	_ = s.AppendInteraction(ctx, 11, InteractionEvent{ProductID: 1, Type: recommend.InteractionView, Timestamp: base})

	got, err := s.Interactions(ctx, 1)
	if err != nil {
		t.Fatalf("Interactions: %v", err)
	}
	wantIDs := []int{1, 3, 3, 2}
	if len(got) != len(wantIDs) {
		t.Fatalf("got %d interactions, want %d", len(got), len(wantIDs))
	}
	for i, id := range wantIDs {
		if got[i].ProductID != id {
			t.Errorf("interaction %d: product %d, want %d", i, got[i].ProductID, id)
		}
	}
	// Same timestamp keeps insertion order.
	if got[1].Type != recommend.InteractionPurchase || got[2].Type != recommend.InteractionView {
		t.Errorf("same-timestamp order not preserved: %v, %v", got[1].Type, got[2].Type)
	}
}

func TestBadgerStore_AppendInteractionErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProducts(t, s, 1)
	_ = s.CreateUser(ctx, &User{UserID: 5, Name: "u"})

	err := s.AppendInteraction(ctx, 99, InteractionEvent{ProductID: 1, Type: recommend.InteractionView})
	if !errors.Is(err, recommend.ErrUserNotFound) {
		t.Errorf("unknown user: err = %v, want ErrUserNotFound", err)
	}
	err = s.AppendInteraction(ctx, 5, InteractionEvent{ProductID: 404, Type: recommend.InteractionView})
	if !errors.Is(err, ErrProductNotFound) {
		t.Errorf("unknown product: err = %v, want ErrProductNotFound", err)
	}
	if _, err := s.Interactions(ctx, 99); !errors.Is(err, recommend.ErrUserNotFound) {
		t.Errorf("Interactions unknown user: err = %v", err)
	}
}

func TestBadgerStore_DeleteUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedProducts(t, s, 1)
	_ = s.CreateUser(ctx, &User{UserID: 3, Name: "u"})
	_ = s.AppendInteraction(ctx, 3, InteractionEvent{ProductID: 1, Type: recommend.InteractionView, Timestamp: time.Now()})

	if err := s.DeleteUser(ctx, 3); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := s.GetUser(ctx, 3); !errors.Is(err, recommend.ErrUserNotFound) {
		t.Errorf("deleted user still readable: %v", err)
	}

	// Re-created user starts with an empty history.
	_ = s.CreateUser(ctx, &User{UserID: 3, Name: "again"})
	events, err := s.Interactions(ctx, 3)
	if err != nil || len(events) != 0 {
		t.Errorf("Interactions = (%v, %v), want empty", events, err)
	}

	if err := s.DeleteUser(ctx, 3000); !errors.Is(err, recommend.ErrUserNotFound) {
		t.Errorf("delete unknown: err = %v, want ErrUserNotFound", err)
	}
}

func TestBadgerStore_ProductsAndPopularity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.UpsertProducts(ctx, []recommend.Product{
		{ProductID: 10, ProductName: "ten", Category: "a", InteractionCount: 4},
		{ProductID: 2, ProductName: "two", Category: "b", Tags: []string{"x"}},
	})
	if err != nil || n != 2 {
		t.Fatalf("UpsertProducts = (%d, %v)", n, err)
	}

	_ = s.CreateUser(ctx, &User{UserID: 1, Name: "u"})
	_ = s.AppendInteraction(ctx, 1, InteractionEvent{ProductID: 2, Type: recommend.InteractionView})
	_ = s.AppendInteraction(ctx, 1, InteractionEvent{ProductID: 10, Type: recommend.InteractionCart})

	// A lower seed never lowers the live counter.
	_, _ = s.UpsertProducts(ctx, []recommend.Product{{ProductID: 10, ProductName: "ten v2", Category: "a", InteractionCount: 1}})

	products, err := s.Products(ctx)
	if err != nil {
		t.Fatalf("Products: %v", err)
	}
	if len(products) != 2 || products[0].ProductID != 2 || products[1].ProductID != 10 {
		t.Fatalf("products not ordered by id: %+v", products)
	}
	if products[0].InteractionCount != 1 {
		t.Errorf("product 2 count = %d, want 1", products[0].InteractionCount)
	}
	if products[1].InteractionCount != 5 || products[1].ProductName != "ten v2" {
		t.Errorf("product 10 = %+v, want count 5 and updated name", products[1])
	}
}

func TestBadgerStore_UpsertManyChunks(t *testing.T) {
	s := newTestStore(t)
	ids := make([]int, upsertChunk*2+7)
	for i := range ids {
		ids[i] = i + 1
	}
	seedProducts(t, s, ids...)

	products, err := s.Products(context.Background())
	if err != nil {
		t.Fatalf("Products: %v", err)
	}
	if len(products) != len(ids) {
		t.Errorf("got %d products, want %d", len(products), len(ids))
	}
}

func TestOpenBadgerStore_InMemory(t *testing.T) {
	s, err := OpenBadgerStore(config.UserDataConfig{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadgerStore: %v", err)
	}
	if err := s.RunGC(); err != nil {
		t.Errorf("RunGC in memory = %v, want no-op", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestOpenBadgerStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenBadgerStore(config.UserDataConfig{DataDir: dir})
	if err != nil {
		t.Fatalf("OpenBadgerStore: %v", err)
	}
	_ = s.CreateUser(ctx, &User{UserID: 8, Name: "persisted"})
	if err := s.RunGC(); err != nil {
		t.Errorf("RunGC on a fresh store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenBadgerStore(config.UserDataConfig{DataDir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	u, err := reopened.GetUser(ctx, 8)
	if err != nil || u.Name != "persisted" {
		t.Errorf("GetUser after reopen = (%+v, %v)", u, err)
	}
}

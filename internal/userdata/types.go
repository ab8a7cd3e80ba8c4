// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package userdata

import (
	"errors"
	"time"

	"github.com/tomtom215/shelfwise/internal/recommend"
)

var (
	// ErrUserExists is returned when creating a user whose id is taken.
	ErrUserExists = errors.New("user already exists")

	// ErrProductNotFound is returned when an interaction names an unknown product.
	ErrProductNotFound = errors.New("product not found")

	// ErrDuplicateProduct is returned when an ingest payload repeats a product id.
	ErrDuplicateProduct = errors.New("duplicate product")
)

// User is a customer profile.
type User struct {
	UserID      int       `json:"user_id" validate:"required,gt=0"`
	Name        string    `json:"name" validate:"required,notblank,max=256"`
	Age         int       `json:"age,omitempty" validate:"gte=0,lte=150"`
	Gender      string    `json:"gender,omitempty" validate:"max=32"`
	Location    string    `json:"location,omitempty" validate:"max=256"`
	Preferences []string  `json:"preferences,omitempty" validate:"max=64,dive,max=128"`
	CreatedAt   time.Time `json:"created_at"`
}

// InteractionEvent is one recorded user action on a product.
type InteractionEvent struct {
	ProductID int                       `json:"product_id" validate:"required,gt=0"`
	Type      recommend.InteractionType `json:"type" validate:"required,oneof=view cart purchase"`
	Quantity  int                       `json:"quantity,omitempty" validate:"gte=0,lte=10000"`
	Timestamp time.Time                 `json:"timestamp"`
}

// Weight returns the implicit feedback weight of the event.
func (e InteractionEvent) Weight() float64 {
	return e.Type.Weight(e.Quantity)
}

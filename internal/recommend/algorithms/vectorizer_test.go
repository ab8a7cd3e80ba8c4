// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package algorithms

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/tomtom215/shelfwise/internal/recommend"
)

func testCatalog() []recommend.Product {
	return []recommend.Product{
		{ProductID: 1, ProductName: "Trail Running Shoes", Category: "Footwear", Tags: []string{"running", "trail"}, Description: "Grippy shoes for the trail", InteractionCount: 5},
		{ProductID: 2, ProductName: "Road Running Shoes", Category: "Footwear", Tags: []string{"running", "road"}, Description: "Light shoes for the road", InteractionCount: 9},
		{ProductID: 3, ProductName: "Cast Iron Skillet", Category: "Kitchen", Tags: []string{"cookware"}, Description: "A heavy pan", InteractionCount: 9},
	}
}

func norm(v recommend.Vector) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Trail Running-Shoes", []string{"trail", "running", "shoes"}},
		{"  4K  TV, 55\" ", []string{"4k", "tv", "55"}},
		{"a b c", []string{}},
		{"Café crème", []string{"café", "crème"}},
		{"", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := tokenize(tt.input)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuildProductVectors(t *testing.T) {
	v := NewTermVectorizer()

	vectors, err := v.BuildProductVectors(testCatalog())
	if err != nil {
		t.Fatalf("BuildProductVectors: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vectors))
	}

	dim := len(vectors[1])
	for id, vec := range vectors {
		if len(vec) != dim {
			t.Errorf("product %d has dim %d, want %d", id, len(vec), dim)
		}
		if n := norm(vec); math.Abs(n-1) > 1e-9 {
			t.Errorf("product %d norm = %v, want 1", id, n)
		}
	}

	if sim12, sim13 := cosineSimilarity(vectors[1], vectors[2]), cosineSimilarity(vectors[1], vectors[3]); sim12 <= sim13 {
		t.Errorf("expected footwear products to be closer: sim(1,2)=%v sim(1,3)=%v", sim12, sim13)
	}
}

func TestBuildProductVectors_Deterministic(t *testing.T) {
	v := NewTermVectorizer()

	first, _ := v.BuildProductVectors(testCatalog())
	for i := 0; i < 5; i++ {
		again, _ := v.BuildProductVectors(testCatalog())
		if !reflect.DeepEqual(first, again) {
			t.Fatal("vectors differ between builds of the same catalog")
		}
	}
}

func TestBuildProductVectors_CategoryTerm(t *testing.T) {
	v := NewTermVectorizer()
	catalog := []recommend.Product{
		{ProductID: 1, ProductName: "Alpha", Category: "Home & Garden"},
		{ProductID: 2, ProductName: "Beta", Category: "home & garden"},
		{ProductID: 3, ProductName: "Gamma", Category: "Toys"},
	}

	vectors, err := v.BuildProductVectors(catalog)
	if err != nil {
		t.Fatalf("BuildProductVectors: %v", err)
	}
	if cosineSimilarity(vectors[1], vectors[2]) <= 0 {
		t.Error("products of the same category should share terms")
	}
	if cosineSimilarity(vectors[1], vectors[3]) != 0 {
		t.Error("products of different categories with no shared tokens should be orthogonal")
	}
}

func TestBuildProductVectors_EmptyCatalog(t *testing.T) {
	_, err := NewTermVectorizer().BuildProductVectors(nil)
	if !errors.Is(err, recommend.ErrEmptyCatalog) {
		t.Errorf("err = %v, want ErrEmptyCatalog", err)
	}
}

func TestBuildUserVector(t *testing.T) {
	v := NewTermVectorizer()
	vectors := map[int]recommend.Vector{
		1: {1, 0, 0},
		2: {0, 1, 0},
		3: {0, 0, 1},
	}

	tests := []struct {
		name    string
		history []recommend.Interaction
		want    recommend.Vector
	}{
		{
			name:    "weighted mean",
			history: []recommend.Interaction{{ProductID: 1, Weight: 3}, {ProductID: 2, Weight: 1}},
			want:    recommend.Vector{0.75, 0.25, 0},
		},
		{
			name:    "unknown products and non-positive weights skipped",
			history: []recommend.Interaction{{ProductID: 99, Weight: 5}, {ProductID: 2, Weight: 0}, {ProductID: 3, Weight: 2}},
			want:    recommend.Vector{0, 0, 1},
		},
		{
			name:    "empty history is cold start",
			history: nil,
			want:    recommend.Vector{0, 0, 0},
		},
		{
			name:    "only unknown products is cold start",
			history: []recommend.Interaction{{ProductID: 42, Weight: 1}},
			want:    recommend.Vector{0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.BuildUserVector(tt.history, vectors)
			if err != nil {
				t.Fatalf("BuildUserVector: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildUserVector_Errors(t *testing.T) {
	v := NewTermVectorizer()

	if _, err := v.BuildUserVector(nil, nil); !errors.Is(err, recommend.ErrEmptyCatalog) {
		t.Errorf("empty catalog: err = %v, want ErrEmptyCatalog", err)
	}

	mixed := map[int]recommend.Vector{1: {1, 0}, 2: {1, 0, 0}}
	_, err := v.BuildUserVector([]recommend.Interaction{{ProductID: 1, Weight: 1}}, mixed)
	var dimErr *recommend.DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("mixed dims: err = %v, want *DimensionError", err)
	}
	if !errors.Is(err, recommend.ErrInvalidDimension) {
		t.Error("DimensionError should match ErrInvalidDimension")
	}
}

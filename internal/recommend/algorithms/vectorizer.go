// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package algorithms

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/tomtom215/shelfwise/internal/recommend"
)

// categoryTermPrefix marks the whole-category term so that products of the
// same category match even when their category names share no tokens.
const categoryTermPrefix = "category="

// TermVectorizer implements content-based features using product metadata.
// Each product becomes a TF-IDF weighted bag of terms drawn from its
// category, tags, name and description:
//
//	w(t, p) = tf(t, p) * (ln((1 + N) / (1 + df(t))) + 1)
//
// Vectors are L2-normalized. The vocabulary is sorted, so a given catalog
// always yields the same dimension order.
type TermVectorizer struct {
	stopWords map[string]struct{}
}

// NewTermVectorizer creates a vectorizer with the built-in English stop words.
func NewTermVectorizer() *TermVectorizer {
	stop := make(map[string]struct{}, len(englishStopWords))
	for _, w := range englishStopWords {
		stop[w] = struct{}{}
	}
	return &TermVectorizer{stopWords: stop}
}

// BuildProductVectors derives the vocabulary from catalog and returns one
// vector per product id.
//
//nolint:gocritic // rangeValCopy: Product passed by value in range, acceptable for clarity
func (v *TermVectorizer) BuildProductVectors(catalog []recommend.Product) (map[int]recommend.Vector, error) {
	if len(catalog) == 0 {
		return nil, recommend.ErrEmptyCatalog
	}

	termCounts := make([]map[string]float64, len(catalog))
	docFreq := make(map[string]int)
	for i, p := range catalog {
		termCounts[i] = v.terms(p)
		for term := range termCounts[i] {
			docFreq[term]++
		}
	}

	vocab := make([]string, 0, len(docFreq))
	for term := range docFreq {
		vocab = append(vocab, term)
	}
	sort.Strings(vocab)

	index := make(map[string]int, len(vocab))
	idf := make([]float64, len(vocab))
	n := float64(len(catalog))
	for i, term := range vocab {
		index[term] = i
		idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	vectors := make(map[int]recommend.Vector, len(catalog))
	for i, p := range catalog {
		vec := make(recommend.Vector, len(vocab))
		for term, tf := range termCounts[i] {
			j := index[term]
			vec[j] = tf * idf[j]
		}
		normalize(vec)
		vectors[p.ProductID] = vec
	}

	return vectors, nil
}

// BuildUserVector returns sum(w_i * v_i) / sum(w_i) over history entries
// whose product is in vectors and whose weight is positive. Without such
// entries the result is the zero vector, which signals cold start.
func (v *TermVectorizer) BuildUserVector(history []recommend.Interaction, vectors map[int]recommend.Vector) (recommend.Vector, error) {
	dim, err := catalogDim(vectors)
	if err != nil {
		return nil, err
	}

	profile := make(recommend.Vector, dim)
	var total float64
	for _, h := range history {
		vec, ok := vectors[h.ProductID]
		if !ok || h.Weight <= 0 {
			continue
		}
		for j, x := range vec {
			profile[j] += h.Weight * x
		}
		total += h.Weight
	}

	if total == 0 {
		return profile, nil
	}
	for j := range profile {
		profile[j] /= total
	}
	return profile, nil
}

// terms counts the terms of one product.
//
//nolint:gocritic // hugeParam: Product passed by value for immutability
func (v *TermVectorizer) terms(p recommend.Product) map[string]float64 {
	counts := make(map[string]float64)

	if category := strings.ToLower(strings.TrimSpace(p.Category)); category != "" {
		counts[categoryTermPrefix+category]++
	}

	fields := make([]string, 0, len(p.Tags)+3)
	fields = append(fields, p.Category)
	fields = append(fields, p.Tags...)
	fields = append(fields, p.ProductName, p.Description)

	for _, field := range fields {
		for _, tok := range tokenize(field) {
			if _, stop := v.stopWords[tok]; stop {
				continue
			}
			counts[tok]++
		}
	}
	return counts
}

// tokenize lowercases s and splits it on runs of non-alphanumeric runes.
// Single-rune tokens are dropped.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 1 {
			out = append(out, f)
		}
	}
	return out
}

// catalogDim returns the common length of vectors.
func catalogDim(vectors map[int]recommend.Vector) (int, error) {
	if len(vectors) == 0 {
		return 0, recommend.ErrEmptyCatalog
	}
	dim := -1
	for id, vec := range vectors {
		if dim < 0 {
			dim = len(vec)
			continue
		}
		if len(vec) != dim {
			return 0, fmt.Errorf("product %d: %w", id, &recommend.DimensionError{Want: dim, Got: len(vec)})
		}
	}
	return dim, nil
}

// normalize scales vec to unit L2 norm in place. Zero vectors are unchanged.
func normalize(vec recommend.Vector) {
	var sum float64
	for _, x := range vec {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}

var englishStopWords = []string{
	"a", "about", "after", "all", "also", "an", "and", "any", "are", "as", "at",
	"be", "been", "but", "by", "can", "for", "from", "has", "have", "her", "his",
	"if", "in", "into", "is", "it", "its", "more", "most", "new", "no", "not",
	"of", "on", "one", "or", "our", "out", "so", "such", "than", "that", "the",
	"their", "then", "there", "these", "they", "this", "to", "up", "very", "was",
	"we", "were", "what", "when", "which", "while", "who", "will", "with", "you",
	"your",
}

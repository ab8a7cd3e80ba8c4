// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package validation

import (
	"strings"
	"testing"
)

type testProduct struct {
	ProductID   int      `json:"product_id" validate:"required,gt=0"`
	ProductName string   `json:"product_name" validate:"required,notblank,max=20"`
	Kind        string   `json:"kind" validate:"omitempty,oneof=view cart purchase"`
	Tags        []string `json:"tags" validate:"max=2,dive,max=5"`
	Internal    string   `json:"-"`
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     testProduct
		wantField string
		wantTag   string
	}{
		{
			name:  "valid",
			input: testProduct{ProductID: 1, ProductName: "Shoes", Kind: "cart", Tags: []string{"run"}},
		},
		{
			name:      "missing id",
			input:     testProduct{ProductName: "Shoes"},
			wantField: "product_id",
			wantTag:   "required",
		},
		{
			name:      "blank name",
			input:     testProduct{ProductID: 1, ProductName: "   "},
			wantField: "product_name",
			wantTag:   "notblank",
		},
		{
			name:      "unknown kind",
			input:     testProduct{ProductID: 1, ProductName: "Shoes", Kind: "refund"},
			wantField: "kind",
			wantTag:   "oneof",
		},
		{
			name:      "too many tags",
			input:     testProduct{ProductID: 1, ProductName: "Shoes", Tags: []string{"a", "b", "c"}},
			wantField: "tags",
			wantTag:   "max",
		},
		{
			name:      "tag too long",
			input:     testProduct{ProductID: 1, ProductName: "Shoes", Tags: []string{"running"}},
			wantField: "tags[0]",
			wantTag:   "max",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			got := err.Errors()[0]
			if got.Field() != tt.wantField || got.Tag() != tt.wantTag {
				t.Errorf("got field=%q tag=%q, want field=%q tag=%q", got.Field(), got.Tag(), tt.wantField, tt.wantTag)
			}
			if !strings.Contains(got.Error(), tt.wantField) {
				t.Errorf("message %q should name the field", got.Error())
			}
		})
	}
}

func TestValidateSlice(t *testing.T) {
	items := []testProduct{
		{ProductID: 1, ProductName: "ok"},
		{ProductID: 0, ProductName: "bad id"},
		{ProductID: 3, ProductName: ""},
	}

	err := ValidateSlice(items)
	if err == nil {
		t.Fatal("expected validation error")
	}
	fields := make([]string, 0, len(err.Errors()))
	for _, e := range err.Errors() {
		fields = append(fields, e.Field())
	}
	joined := strings.Join(fields, ",")
	if !strings.Contains(joined, "[1].product_id") || !strings.Contains(joined, "[2].product_name") {
		t.Errorf("fields = %v, want indexed names", fields)
	}

	if ValidateSlice(items[:1]) != nil {
		t.Error("valid slice should pass")
	}
}

func TestToAPIError(t *testing.T) {
	single := ValidateStruct(&testProduct{ProductName: "x"}).ToAPIError()
	if single.Code != "VALIDATION_ERROR" || single.Details["field"] != "product_id" {
		t.Errorf("single error = %+v", single)
	}

	multi := ValidateStruct(&testProduct{}).ToAPIError()
	if _, ok := multi.Details["fields"]; !ok {
		t.Errorf("multiple errors should list fields: %+v", multi)
	}

	empty := (&RequestValidationError{}).ToAPIError()
	if empty.Message != "Validation failed" {
		t.Errorf("empty message = %q", empty.Message)
	}
}

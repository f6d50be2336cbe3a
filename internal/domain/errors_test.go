package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
		want bool
	}{
		{
			name: "not found",
			err:  ErrOrderNotFound,
			pred: IsNotFound,
			want: true,
		},
		{
			name: "wrapped not found",
			err:  fmt.Errorf("get order: %w", ErrOrderNotFound),
			pred: IsNotFound,
			want: true,
		},
		{
			name: "validation error",
			err:  ValidationErrorf("Order must have at least one item"),
			pred: IsValidation,
			want: true,
		},
		{
			name: "invalid data error",
			err:  InvalidDataErrorf("Order ID is required"),
			pred: IsInvalidData,
			want: true,
		},
		{
			name: "validation is not invalid data",
			err:  ValidationErrorf("Customer ID is required"),
			pred: IsInvalidData,
			want: false,
		},
		{
			name: "version conflict",
			err:  errors.Join(ErrOrderVersionConflict, errors.New("extra context")),
			pred: IsVersionConflict,
			want: true,
		},
		{
			name: "nil error",
			err:  nil,
			pred: IsNotFound,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred(tt.err); got != tt.want {
				t.Errorf("predicate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidationErrorf_Message(t *testing.T) {
	err := ValidationErrorf("Item %d: Quantity must be greater than 0", 3)
	want := "order validation failed: Item 3: Quantity must be greater than 0"
	if err.Error() != want {
		t.Fatalf("err = %q, want %q", err.Error(), want)
	}
}

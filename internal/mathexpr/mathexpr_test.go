package mathexpr

import (
	"errors"
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"100", "100.0"},
		{"1 + 2", "1.0 + 2.0"},
		{"5. * .5", "5.0 * 0.5"},
		{"1.25", "1.25"},
		{"1e3", "1.0e3"},
		{"2.5E-2", "2.5E-2"},
		{"(-3)", "(-3.0)"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"1 + 2", 3},
		{"7 / 2", 3.5},
		{"2 * (3 + 4)", 14},
		{"10 - (-5)", 15},
		{"(-2) * (-2)", 4},
		{"1e2 / 4", 25},
		{" 42 ", 42},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want error
	}{
		{"empty", "  ", ErrEmpty},
		{"identifier", "1 + x", ErrCharacters},
		{"modulo", "5 % 2", ErrCharacters},
		{"power", "2^3", ErrCharacters},
		{"function call", "size(1)", ErrCharacters},
		{"division by zero", "1 / 0", ErrNotFinite},
		{"dangling operator", "1 +", nil},
		{"unbalanced", "(1 + 2", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.expr)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

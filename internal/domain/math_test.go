package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestReturnPct(t *testing.T) {
	tests := []struct {
		name    string
		initial string
		current string
		want    string
		wantErr bool
	}{
		{"gain", "100", "150", "50", false},
		{"loss", "100", "75", "-25", false},
		{"flat", "42.5", "42.5", "0", false},
		{"small prices", "0.0004", "0.0006", "50", false},
		{"to zero", "10", "0", "-100", false},
		{"zero initial", "0", "10", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initial, _ := decimal.NewFromString(tt.initial)
			current, _ := decimal.NewFromString(tt.current)

			got, err := ReturnPct(initial, current)
			if tt.wantErr {
				if !errors.Is(err, ErrDivisionUndefined) {
					t.Fatalf("error = %v, want ErrDivisionUndefined", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want, _ := decimal.NewFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("ReturnPct(%s, %s) = %s, want %s", tt.initial, tt.current, got, want)
			}
		})
	}
}

func TestMean(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{"single", []string{"50"}, "50"},
		{"pair", []string{"10", "20"}, "15"},
		{"negative mix", []string{"-30", "10", "50"}, "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := make([]decimal.Decimal, len(tt.values))
			for i, v := range tt.values {
				values[i], _ = decimal.NewFromString(v)
			}
			got := Mean(values)
			if got == nil {
				t.Fatal("Mean returned nil for non-empty input")
			}
			want, _ := decimal.NewFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("Mean(%v) = %s, want %s", tt.values, got, want)
			}
		})
	}
}

func TestMeanEmpty(t *testing.T) {
	if got := Mean(nil); got != nil {
		t.Errorf("Mean(nil) = %s, want nil", got)
	}
}

func TestEvenAllocation(t *testing.T) {
	size := decimal.NewFromInt(10000)
	got := EvenAllocation(size, 100)
	if !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("EvenAllocation(10000, 100) = %s, want 100", got)
	}

	if !EvenAllocation(size, 0).IsZero() {
		t.Error("EvenAllocation with zero assets should be zero")
	}
}

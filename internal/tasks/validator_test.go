package tasks

import (
	"errors"
	"math"
	"testing"
	"testing/quick"

	"github.com/desertthunder/pricepal/internal/shared"
)

func TestParseTargetPrice(t *testing.T) {
	tt := []struct {
		name    string
		raw     string
		want    float64
		wantErr bool
	}{
		{"integer", "1999", 1999, false},
		{"decimal", "1999.50", 1999.5, false},
		{"surrounding space", "  42 ", 42, false},
		{"rupee sign", "₹1,999", 1999, false},
		{"rs prefix", "Rs. 250", 250, false},
		{"negative parses", "-5", -5, false},
		{"empty", "", 0, true},
		{"blank", "   ", 0, true},
		{"letters", "abc", 0, true},
		{"nan", "NaN", 0, true},
		{"infinity", "Inf", 0, true},
		{"trailing junk", "12abc", 0, true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTargetPrice(tc.raw)
			if tc.wantErr {
				if !errors.Is(err, shared.ErrInvalidTargetPrice) {
					t.Fatalf("expected ErrInvalidTargetPrice, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("ParseTargetPrice(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestValidateTargetPrice(t *testing.T) {
	tt := []struct {
		name    string
		target  float64
		current float64
		wantErr error
	}{
		{"just below current", 1999.99, 2000, nil},
		{"one rupee below", 1999, 2000, nil},
		{"tiny positive", 0.01, 2000, nil},
		{"equal to current", 2000, 2000, shared.ErrTargetTooHigh},
		{"above current", 2500, 2000, shared.ErrTargetTooHigh},
		{"zero", 0, 2000, shared.ErrInvalidTargetPrice},
		{"negative", -1, 2000, shared.ErrInvalidTargetPrice},
		{"nan target", math.NaN(), 2000, shared.ErrInvalidTargetPrice},
		{"infinite target", math.Inf(1), 2000, shared.ErrInvalidTargetPrice},
		{"nan current", 100, math.NaN(), shared.ErrTargetTooHigh},
		{"zero current", 1, 0, shared.ErrTargetTooHigh},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTargetPrice(tc.target, tc.current)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Error("validation errors should match ErrInvalidInput")
			}
		})
	}
}

func TestCheckTargetPrice(t *testing.T) {
	t.Run("2500 against 2000 is too high", func(t *testing.T) {
		_, err := CheckTargetPrice("2500", 2000)
		if !errors.Is(err, shared.ErrTargetTooHigh) {
			t.Fatalf("expected ErrTargetTooHigh, got %v", err)
		}
		if got := shared.UserMessage(err); got != "target price too high: Target price should be lower than current price" {
			t.Errorf("unexpected message %q", got)
		}
	})

	t.Run("1999 against 2000 saves one rupee", func(t *testing.T) {
		target, err := CheckTargetPrice("1999", 2000)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s := Savings(2000, target); s != 1 {
			t.Errorf("Savings = %v, want 1", s)
		}
	})

	t.Run("unparsable input", func(t *testing.T) {
		if _, err := CheckTargetPrice("cheap", 2000); !errors.Is(err, shared.ErrInvalidTargetPrice) {
			t.Errorf("expected ErrInvalidTargetPrice, got %v", err)
		}
	})
}

func TestValidateTargetPriceProperties(t *testing.T) {
	t.Run("accepted iff 0 < target < current", func(t *testing.T) {
		property := func(target, current float64) bool {
			err := ValidateTargetPrice(target, current)
			return (err == nil) == (target > 0 && target < current)
		}
		if err := quick.Check(property, nil); err != nil {
			t.Error(err)
		}
	})

	t.Run("equality is always rejected", func(t *testing.T) {
		property := func(current float64) bool {
			return errors.Is(ValidateTargetPrice(current, current), shared.ErrInvalidInput)
		}
		if err := quick.Check(property, nil); err != nil {
			t.Error(err)
		}
	})

	t.Run("one paisa below current is accepted", func(t *testing.T) {
		property := func(paise uint32) bool {
			current := float64(paise%10_000_000)/100 + 1
			return ValidateTargetPrice(current-0.01, current) == nil
		}
		if err := quick.Check(property, nil); err != nil {
			t.Error(err)
		}
	})

	t.Run("savings are positive for accepted targets", func(t *testing.T) {
		property := func(target, current float64) bool {
			if ValidateTargetPrice(target, current) != nil {
				return true
			}
			return Savings(current, target) > 0
		}
		if err := quick.Check(property, nil); err != nil {
			t.Error(err)
		}
	})
}

func FuzzCheckTargetPrice(f *testing.F) {
	for _, s := range []string{"", "0", "-1", "1999", "2000", "2000.00", "1999.99", "₹1,500", "NaN", "+Inf", "1e308", "0x1p4", " 7 "} {
		f.Add(s, 2000.0)
	}
	f.Fuzz(func(t *testing.T, raw string, current float64) {
		target, err := CheckTargetPrice(raw, current)
		if err != nil {
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Fatalf("rejection is not a validation error: %v", err)
			}
			if target != 0 {
				t.Fatalf("rejected input returned target %v", target)
			}
			return
		}
		if !(target > 0 && target < current) || math.IsNaN(target) || math.IsInf(target, 0) {
			t.Fatalf("accepted %q as %v against %v", raw, target, current)
		}
	})
}

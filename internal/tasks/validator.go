package tasks

import (
	"math"
	"strconv"
	"strings"

	"github.com/desertthunder/pricepal/internal/shared"
)

const (
	invalidTargetDetail = "Please enter a valid target price"
	tooHighDetail       = "Target price should be lower than current price"
)

// ParseTargetPrice reads a target price typed by a user.
//
// A leading rupee sign and digit-grouping commas are accepted; anything else that is not a finite number is rejected.
func ParseTargetPrice(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "₹")
	s = strings.TrimPrefix(s, "Rs.")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, shared.NewValidationError("target_price", shared.ErrInvalidTargetPrice, invalidTargetDetail)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, shared.NewValidationError("target_price", shared.ErrInvalidTargetPrice, invalidTargetDetail)
	}
	return v, nil
}

// ValidateTargetPrice accepts target only when 0 < target < current.
func ValidateTargetPrice(target, current float64) error {
	if math.IsNaN(target) || math.IsInf(target, 0) || target <= 0 {
		return shared.NewValidationError("target_price", shared.ErrInvalidTargetPrice, invalidTargetDetail)
	}
	if !(target < current) {
		return shared.NewValidationError("target_price", shared.ErrTargetTooHigh, tooHighDetail)
	}
	return nil
}

// CheckTargetPrice parses raw and validates it against current.
func CheckTargetPrice(raw string, current float64) (float64, error) {
	target, err := ParseTargetPrice(raw)
	if err != nil {
		return 0, err
	}
	if err := ValidateTargetPrice(target, current); err != nil {
		return 0, err
	}
	return target, nil
}

// Savings is how much cheaper target is than current.
func Savings(current, target float64) float64 {
	return current - target
}

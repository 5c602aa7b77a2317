package calculator

import (
	"errors"
	"fmt"
	"math"

	"SplitBot/internal/model"
)

// MyShareRatio is the fixed portion of the post-drop amount that is split.
const MyShareRatio = 0.25

// ErrInvalidInput is returned when an argument violates a domain constraint.
var ErrInvalidInput = errors.New("invalid calculation input")

// ErrOverflow is returned when valid inputs produce a result outside the
// float64 range. It wraps ErrInvalidInput.
var ErrOverflow = fmt.Errorf("%w: result out of range", ErrInvalidInput)

// Remark thresholds on the per-person share, in USD.
const (
	LowShareBelow  = 30.0
	HighShareAbove = 100.0
)

// Split holds every derived value of one revenue split.
type Split struct {
	AmountForeign   float64
	AmountAfterDrop float64
	MyShare         float64
	PerPerson       float64
	OriginEarned    float64
	Remark          model.RemarkTier
}

// Foreign converts an origin amount to the foreign currency.
func Foreign(amountOrigin, rate float64) (float64, error) {
	if !positive(rate) {
		return 0, fmt.Errorf("%w: rate must be positive, got %v", ErrInvalidInput, rate)
	}
	return finite(amountOrigin / rate)
}

// AfterDrop applies the drop percentage to a foreign amount.
func AfterDrop(amountForeign, dropPercent float64) (float64, error) {
	if !ValidDrop(dropPercent) {
		return 0, fmt.Errorf("%w: drop percent must be in [0,100), got %v", ErrInvalidInput, dropPercent)
	}
	return finite(amountForeign * (1 - dropPercent/100))
}

// ValidDrop reports whether p is a usable drop percentage.
func ValidDrop(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p < 100
}

// Calculate runs the whole split. Inputs are not coerced: callers validate first.
func Calculate(amountOrigin, rate, dropPercent float64, participants int) (Split, error) {
	if !positive(amountOrigin) {
		return Split{}, fmt.Errorf("%w: amount must be positive, got %v", ErrInvalidInput, amountOrigin)
	}
	if participants <= 0 {
		return Split{}, fmt.Errorf("%w: participants must be positive, got %d", ErrInvalidInput, participants)
	}
	foreign, err := Foreign(amountOrigin, rate)
	if err != nil {
		return Split{}, err
	}
	afterDrop, err := AfterDrop(foreign, dropPercent)
	if err != nil {
		return Split{}, err
	}

	myShare := afterDrop * MyShareRatio
	perPerson := myShare / float64(participants)
	earned, err := finite(perPerson * rate)
	if err != nil {
		return Split{}, err
	}
	return Split{
		AmountForeign:   foreign,
		AmountAfterDrop: afterDrop,
		MyShare:         myShare,
		PerPerson:       perPerson,
		OriginEarned:    earned,
		Remark:          RemarkFor(perPerson),
	}, nil
}

// RemarkFor maps a per-person share to its remark tier.
func RemarkFor(perPerson float64) model.RemarkTier {
	switch {
	case perPerson < LowShareBelow:
		return model.RemarkLow
	case perPerson > HighShareAbove:
		return model.RemarkHigh
	default:
		return model.RemarkNone
	}
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// finite rejects results that overflowed the float64 range.
func finite(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrOverflow
	}
	return v, nil
}

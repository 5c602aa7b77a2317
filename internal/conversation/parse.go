package conversation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrInputFormat means the text is not the kind of value the step expects.
	ErrInputFormat = errors.New("input format")
	// ErrRange means the value parsed but violates a domain constraint.
	ErrRange = errors.New("input out of range")
	// ErrStateIntegrity means a session reached a step without the data it needs.
	ErrStateIntegrity = errors.New("session state integrity violated")
)

var spaceStripper = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "")

// ParseNumber reads a real number, accepting a comma as the decimal point and
// spaces as digit group separators.
func ParseNumber(text string) (float64, error) {
	s := spaceStripper.Replace(strings.TrimSpace(text))
	s = strings.Replace(s, ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInputFormat, text)
	}
	return v, nil
}

// ParsePositive reads a strictly positive real number.
func ParsePositive(text string) (float64, error) {
	v, err := ParseNumber(text)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("%w: %v must be positive", ErrRange, v)
	}
	return v, nil
}

// ParseDropPercent reads a percentage in [0, 100).
func ParseDropPercent(text string) (float64, error) {
	v, err := ParseNumber(text)
	if err != nil {
		return 0, err
	}
	if v < 0 || v >= 100 {
		return 0, fmt.Errorf("%w: %v is outside [0, 100)", ErrRange, v)
	}
	return v, nil
}

// ParseCount reads a strictly positive decimal integer.
func ParseCount(text string) (int, error) {
	s := strings.TrimSpace(text)
	n, err := strconv.Atoi(s)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %q is too large", ErrRange, text)
		}
		return 0, fmt.Errorf("%w: %q is not a whole number", ErrInputFormat, text)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %d must be positive", ErrRange, n)
	}
	return n, nil
}

package model

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Money renders v rounded half away from zero to two decimals.
func Money(v float64) string {
	return fixed(v, 2)
}

// Percent renders v with one decimal, the way drop percentages are shown.
func Percent(v float64) string {
	return fixed(v, 1)
}

// fixed formats through decimal, which panics on NaN and infinities.
func fixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', int(places), 64)
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

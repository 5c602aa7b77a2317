package model

import "time"

// RateSource indicates where the exchange rate of a calculation came from.
type RateSource string

const (
	RateSourceRemote RateSource = "REMOTE"
	RateSourceManual RateSource = "MANUAL"
)

// RemarkTier is the qualitative verdict attached to a per-person share.
type RemarkTier string

const (
	RemarkNone RemarkTier = ""
	RemarkLow  RemarkTier = "LOW"
	RemarkHigh RemarkTier = "HIGH"
)

// Calculation is one completed revenue split.
type Calculation struct {
	ID              string
	UserID          int64
	AmountOrigin    float64 // RUB
	Rate            float64 // RUB per 1 USD
	RateSource      RateSource
	AmountForeign   float64 // USD
	DropPercent     float64
	AmountAfterDrop float64
	MyShare         float64
	Participants    int
	PerPerson       float64
	OriginEarned    float64 // RUB
	Remark          RemarkTier
	At              time.Time
}

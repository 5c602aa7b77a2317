package recorder

import "SplitBot/internal/model"

// RateFetchEvent holds the outcome of one rate feed request.
type RateFetchEvent struct {
	Source string // fetcher name
	Value  float64
	OK     bool
	Error  string
}

// Recorder persists an analytics trail. Nothing is ever read back by the bot.
type Recorder interface {
	RecordCalculation(calc *model.Calculation) error
	RecordRateFetch(evt *RateFetchEvent) error
	Close() error
}

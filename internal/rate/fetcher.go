package rate

import (
	"context"
	"fmt"
)

// Fetcher supplies the current RUB price of one USD.
type Fetcher interface {
	FetchUSD(ctx context.Context) (float64, error)
	Name() string
}

// FetchError reports an unusable answer from a rate feed.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("rate fetch from %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StaticFetcher returns a fixed rate or error, for offline runs and tests.
type StaticFetcher struct {
	Value float64
	Err   error
}

func (s *StaticFetcher) Name() string { return "static" }

func (s *StaticFetcher) FetchUSD(_ context.Context) (float64, error) {
	if s.Err != nil {
		return 0, &FetchError{Source: s.Name(), Err: s.Err}
	}
	return s.Value, nil
}

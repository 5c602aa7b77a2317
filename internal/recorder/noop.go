package recorder

import "SplitBot/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordCalculation(_ *model.Calculation) error { return nil }
func (n *NoopRecorder) RecordRateFetch(_ *RateFetchEvent) error       { return nil }
func (n *NoopRecorder) Close() error                                  { return nil }

package model

import "time"

// Reply is an outbound chat message with optional suggested reply labels.
type Reply struct {
	Text    string
	Choices []string
}

// HistoryEntry is the immutable summary of one completed calculation.
type HistoryEntry struct {
	ID   string
	Text string
	At   time.Time
}

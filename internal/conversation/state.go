package conversation

import "SplitBot/internal/model"

// State is one non-terminal step of a session. Each variant carries exactly the
// fields that are valid at that step; a nil State is the terminal state.
type State interface {
	Name() string
	choices() []string
}

type AwaitingAmount struct{}

type AwaitingRateChoice struct {
	AmountOrigin float64
}

type AwaitingManualRate struct {
	AmountOrigin float64
}

type AwaitingDropPercent struct {
	AmountOrigin  float64
	Rate          float64
	RateSource    model.RateSource
	AmountForeign float64
}

type AwaitingParticipantCount struct {
	AmountOrigin    float64
	Rate            float64
	RateSource      model.RateSource
	AmountForeign   float64
	DropPercent     float64
	AmountAfterDrop float64
}

func (AwaitingAmount) Name() string           { return "AwaitingAmount" }
func (AwaitingRateChoice) Name() string       { return "AwaitingRateChoice" }
func (AwaitingManualRate) Name() string       { return "AwaitingManualRate" }
func (AwaitingDropPercent) Name() string      { return "AwaitingDropPercent" }
func (AwaitingParticipantCount) Name() string { return "AwaitingParticipantCount" }

func (AwaitingAmount) choices() []string           { return cancelOnly }
func (AwaitingRateChoice) choices() []string       { return rateChoices }
func (AwaitingManualRate) choices() []string       { return cancelOnly }
func (AwaitingDropPercent) choices() []string      { return cancelOnly }
func (AwaitingParticipantCount) choices() []string { return cancelOnly }

var (
	cancelOnly  = []string{LabelCancel}
	rateChoices = []string{LabelCachedRate, LabelManualRate, LabelCancel}
)

// StateName returns the name of s, or "Terminal" for nil.
func StateName(s State) string {
	if s == nil {
		return "Terminal"
	}
	return s.Name()
}

// Choices returns the reply labels to offer while in s.
func Choices(s State) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.choices()...)
}

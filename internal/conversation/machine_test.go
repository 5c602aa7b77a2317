package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"SplitBot/internal/history"
	"SplitBot/internal/model"
)

type fixedRate struct {
	value float64
	calls int
}

func (f *fixedRate) Rate(context.Context) float64 {
	f.calls++
	return f.value
}

func newTestMachine(rate float64) (*Machine, *fixedRate, *history.Store) {
	rates := &fixedRate{value: rate}
	hist := history.NewStore(history.DefaultCapacity)
	m := NewMachine(rates, hist, nil)
	m.Now = func() time.Time { return time.Date(2026, 10, 17, 18, 30, 0, 0, time.UTC) }
	m.NewID = func() string { return "calc-1" }
	return m, rates, hist
}

// run feeds texts in order starting from st and returns the final state and replies.
func run(t *testing.T, m *Machine, st State, texts ...string) (State, []model.Reply) {
	t.Helper()
	var replies []model.Reply
	for _, text := range texts {
		next, r, err := m.Handle(context.Background(), 1, st, Translate(text))
		if err != nil {
			t.Fatalf("text %q in %s: unexpected error %v", text, StateName(st), err)
		}
		st = next
		replies = append(replies, r)
	}
	return st, replies
}

func TestMachine_CachedRateFlow(t *testing.T) {
	m, rates, hist := newTestMachine(90.0)
	st, replies := run(t, m, nil, "/start", "1000", LabelCachedRate, "25", "4")

	if st != nil {
		t.Fatalf("expected terminal state, got %s", StateName(st))
	}
	if rates.calls != 1 {
		t.Errorf("expected one rate lookup, got %d", rates.calls)
	}
	if !strings.Contains(replies[2].Text, "11.11$") {
		t.Errorf("expected foreign amount in rate reply, got %q", replies[2].Text)
	}
	if !strings.Contains(replies[3].Text, "8.33$") {
		t.Errorf("expected after-drop amount in drop reply, got %q", replies[3].Text)
	}
	result := replies[4].Text
	for _, want := range []string{"Моя доля (25%): 2.08$", "Людей: 4", "Твой заработок: 0.52$", "Негусто"} {
		if !strings.Contains(result, want) {
			t.Errorf("result missing %q:\n%s", want, result)
		}
	}
	if len(replies[4].Choices) != 0 {
		t.Errorf("expected keyboard removal on result, got %v", replies[4].Choices)
	}

	entries := hist.List(1, 10)
	if len(entries) != 1 || entries[0].ID != "calc-1" {
		t.Fatalf("expected one history entry, got %v", entries)
	}
	if !strings.Contains(entries[0].Text, "1000.00 ₽") {
		t.Errorf("unexpected history summary %q", entries[0].Text)
	}
}

func TestMachine_ManualRateFlow(t *testing.T) {
	m, rates, _ := newTestMachine(90.0)
	st, replies := run(t, m, nil, "/start", "50000", LabelManualRate, "80,0", "0", "1")

	if st != nil {
		t.Fatalf("expected terminal state, got %s", StateName(st))
	}
	if rates.calls != 0 {
		t.Errorf("manual path must not consult the rate provider, got %d calls", rates.calls)
	}
	result := replies[5].Text
	for _, want := range []string{"Моя доля (25%): 156.25$", "Твой заработок: 156.25$ (~12500.00₽)", "Отличный"} {
		if !strings.Contains(result, want) {
			t.Errorf("result missing %q:\n%s", want, result)
		}
	}
}

func TestMachine_InvalidAmountReprompts(t *testing.T) {
	m, _, _ := newTestMachine(90.0)
	tests := []string{"abc", "", "-5", "0", "NaN", LabelCachedRate}
	for _, text := range tests {
		st, replies := run(t, m, AwaitingAmount{}, text)
		if _, ok := st.(AwaitingAmount); !ok {
			t.Errorf("%q: expected to stay in AwaitingAmount, got %s", text, StateName(st))
		}
		if len(replies) != 1 || !strings.HasPrefix(replies[0].Text, "❌") {
			t.Errorf("%q: expected one re-prompt, got %v", text, replies)
		}
		if len(replies[0].Choices) != 1 || replies[0].Choices[0] != LabelCancel {
			t.Errorf("%q: expected cancel affordance, got %v", text, replies[0].Choices)
		}
	}
}

func TestMachine_InvalidParticipantsReprompts(t *testing.T) {
	m, _, hist := newTestMachine(90.0)
	start := AwaitingParticipantCount{
		AmountOrigin: 1000, Rate: 90, RateSource: model.RateSourceRemote,
		AmountForeign: 1000.0 / 90, DropPercent: 25, AmountAfterDrop: 1000.0 / 90 * 0.75,
	}
	for _, text := range []string{"0", "-2", "2.5", "два", "99999999999999999999"} {
		st, _ := run(t, m, start, text)
		if st != start {
			t.Errorf("%q: expected unchanged state, got %#v", text, st)
		}
	}
	if n := hist.Len(1); n != 0 {
		t.Errorf("rejected input must not append history, got %d entries", n)
	}
}

func TestMachine_ManualRateOverflowReprompts(t *testing.T) {
	m, _, _ := newTestMachine(90.0)
	tests := []struct {
		amount float64
		text   string
	}{
		{1e300, "1e-20"},
		{1, "1e-320"},
		{1e308, "0,5"},
	}
	for _, tt := range tests {
		start := AwaitingManualRate{AmountOrigin: tt.amount}
		next, r, err := m.Handle(context.Background(), 1, start, Translate(tt.text))
		if err != nil {
			t.Fatalf("%v / %q: unexpected error %v", tt.amount, tt.text, err)
		}
		if next != start {
			t.Errorf("%v / %q: expected to stay in AwaitingManualRate, got %s", tt.amount, tt.text, StateName(next))
		}
		if !strings.HasPrefix(r.Text, "❌") || len(r.Choices) != 1 {
			t.Errorf("%v / %q: expected re-prompt with cancel, got %+v", tt.amount, tt.text, r)
		}
	}
}

func TestMachine_CachedRateOverflowEndsSession(t *testing.T) {
	m, _, hist := newTestMachine(0.5)
	next, r, err := m.Handle(context.Background(), 1, AwaitingRateChoice{AmountOrigin: 1e308}, Translate(LabelCachedRate))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if next != nil {
		t.Errorf("expected session to end, got %s", StateName(next))
	}
	if !strings.Contains(r.Text, "/start") {
		t.Errorf("expected restart hint, got %q", r.Text)
	}
	if hist.Len(1) != 0 {
		t.Errorf("overflow must not append history")
	}
}

func TestMachine_DropPercentRange(t *testing.T) {
	m, _, _ := newTestMachine(90.0)
	start := AwaitingDropPercent{AmountOrigin: 1000, Rate: 90, RateSource: model.RateSourceRemote, AmountForeign: 1000.0 / 90}
	tests := []struct {
		text string
		ok   bool
	}{
		{"0", true},
		{"99,9", true},
		{" 12.5 ", true},
		{"100", false},
		{"-1", false},
		{"%", false},
	}
	for _, tt := range tests {
		st, _ := run(t, m, start, tt.text)
		_, advanced := st.(AwaitingParticipantCount)
		if advanced != tt.ok {
			t.Errorf("%q: expected advance=%v, got state %s", tt.text, tt.ok, StateName(st))
		}
	}
}

func TestMachine_CancelAtDropPercent(t *testing.T) {
	m, _, hist := newTestMachine(90.0)
	st, _ := run(t, m, nil, "/start", "1000", LabelCachedRate)
	if _, ok := st.(AwaitingDropPercent); !ok {
		t.Fatalf("expected AwaitingDropPercent, got %s", StateName(st))
	}
	for _, cancel := range []string{"/cancel", LabelCancel, "Отмена"} {
		next, r, err := m.Handle(context.Background(), 1, st, Translate(cancel))
		if err != nil || next != nil {
			t.Fatalf("%q: expected terminal without error, got %s, %v", cancel, StateName(next), err)
		}
		if !strings.Contains(r.Text, "отменён") {
			t.Errorf("%q: expected cancellation acknowledgment, got %q", cancel, r.Text)
		}
	}
	if n := hist.Len(1); n != 0 {
		t.Errorf("cancel must not append history, got %d entries", n)
	}
}

func TestMachine_RateChoiceRepromptsWithBothChoices(t *testing.T) {
	m, _, _ := newTestMachine(90.0)
	st, replies := run(t, m, AwaitingRateChoice{AmountOrigin: 10}, "90")
	if _, ok := st.(AwaitingRateChoice); !ok {
		t.Fatalf("expected to stay in AwaitingRateChoice, got %s", StateName(st))
	}
	got := replies[0].Choices
	if len(got) != 3 || got[0] != LabelCachedRate || got[1] != LabelManualRate {
		t.Errorf("expected both rate choices, got %v", got)
	}
}

func TestMachine_StartDiscardsInFlightSession(t *testing.T) {
	m, _, _ := newTestMachine(90.0)
	st, _ := run(t, m, nil, "/start", "1000", LabelManualRate, "/start")
	if _, ok := st.(AwaitingAmount); !ok {
		t.Fatalf("expected restart at AwaitingAmount, got %s", StateName(st))
	}
}

func TestMachine_NoSession(t *testing.T) {
	m, _, _ := newTestMachine(90.0)
	for _, text := range []string{"1000", "/cancel"} {
		st, replies := run(t, m, nil, text)
		if st != nil {
			t.Errorf("%q: expected no session, got %s", text, StateName(st))
		}
		if !strings.Contains(replies[0].Text, "/start") {
			t.Errorf("%q: expected /start hint, got %q", text, replies[0].Text)
		}
	}
}

type bogusState struct{}

func (bogusState) Name() string      { return "Bogus" }
func (bogusState) choices() []string { return nil }

func TestMachine_StateIntegrity(t *testing.T) {
	m, _, hist := newTestMachine(90.0)
	tests := []struct {
		name string
		st   State
		text string
	}{
		{"unknown variant", bogusState{}, "1"},
		{"zero rate at participants", AwaitingParticipantCount{AmountOrigin: 1000, Rate: 0, DropPercent: 10}, "2"},
	}
	for _, tt := range tests {
		next, _, err := m.Handle(context.Background(), 1, tt.st, Translate(tt.text))
		if !errors.Is(err, ErrStateIntegrity) {
			t.Errorf("%s: expected ErrStateIntegrity, got %v", tt.name, err)
		}
		if next != nil {
			t.Errorf("%s: expected session to be dropped, got %s", tt.name, StateName(next))
		}
	}
	if n := hist.Len(1); n != 0 {
		t.Errorf("integrity failures must not append history, got %d", n)
	}
}

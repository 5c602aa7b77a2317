package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
	"unicode"

	"SplitBot/internal/calculator"
	"SplitBot/internal/model"
	"SplitBot/internal/recorder"

	"github.com/google/uuid"
)

// RateSource supplies today's exchange rate. It never fails.
type RateSource interface {
	Rate(ctx context.Context) float64
}

// HistoryAppender receives one entry per completed calculation.
type HistoryAppender interface {
	Append(userID int64, entry model.HistoryEntry)
}

// Machine applies events to session states. It holds no per-user data and is
// safe for concurrent use as long as each user's state is handled serially.
type Machine struct {
	Rates    RateSource
	History  HistoryAppender
	Recorder recorder.Recorder
	Now      func() time.Time
	NewID    func() string
}

// NewMachine creates a Machine wired to its collaborators.
func NewMachine(rates RateSource, hist HistoryAppender, rec recorder.Recorder) *Machine {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Machine{
		Rates:    rates,
		History:  hist,
		Recorder: rec,
		Now:      time.Now,
		NewID:    uuid.NewString,
	}
}

// Handle applies ev to st and returns the next state (nil for Terminal) and the
// reply to send. Invalid input keeps the state and re-prompts. The error is
// non-nil only for ErrStateIntegrity; the returned state is then nil.
func (m *Machine) Handle(ctx context.Context, userID int64, st State, ev Event) (State, model.Reply, error) {
	switch ev.Kind {
	case KindStart:
		return AwaitingAmount{}, reply(AwaitingAmount{}, "💰 Укажите сумму закрыва в рублях:"), nil
	case KindCancel:
		if st == nil {
			return nil, model.Reply{Text: "Нечего отменять. Чтобы начать расчёт, отправьте /start"}, nil
		}
		return nil, model.Reply{Text: "❌ Расчёт отменён."}, nil
	}
	if st == nil {
		return nil, model.Reply{Text: "Чтобы начать расчёт, отправьте /start"}, nil
	}

	switch s := st.(type) {
	case AwaitingAmount:
		return m.onAmount(s, ev)
	case AwaitingRateChoice:
		return m.onRateChoice(ctx, s, ev)
	case AwaitingManualRate:
		return m.onManualRate(s, ev)
	case AwaitingDropPercent:
		return m.onDropPercent(s, ev)
	case AwaitingParticipantCount:
		return m.onParticipants(userID, s, ev)
	default:
		return nil, model.Reply{}, fmt.Errorf("%w: unknown state %T", ErrStateIntegrity, st)
	}
}

func (m *Machine) onAmount(s AwaitingAmount, ev Event) (State, model.Reply, error) {
	amount, err := textValue(ev, ParsePositive)
	if err != nil {
		return s, reprompt(s, err, "❌ Пожалуйста, введите числовую сумму в рублях:",
			"❌ Сумма должна быть больше нуля. Введите сумму в рублях:"), nil
	}
	next := AwaitingRateChoice{AmountOrigin: amount}
	return next, reply(next, fmt.Sprintf("Сумма: %s ₽\nКакой курс использовать?", model.Money(amount))), nil
}

func (m *Machine) onRateChoice(ctx context.Context, s AwaitingRateChoice, ev Event) (State, model.Reply, error) {
	if ev.Kind != KindRateChoice {
		return s, reply(s, "Выберите курс кнопкой ниже: курс ЦБ или свой курс."), nil
	}
	if ev.Source == model.RateSourceManual {
		next := AwaitingManualRate{AmountOrigin: s.AmountOrigin}
		return next, reply(next, "Введите курс: сколько рублей стоит 1 $ (например, 92,5):"), nil
	}
	next, rep, err := m.withRate(s.AmountOrigin, m.Rates.Rate(ctx), model.RateSourceRemote)
	if errors.Is(err, calculator.ErrOverflow) {
		return nil, model.Reply{Text: "❌ Сумма слишком велика для расчёта. Начните заново: /start"}, nil
	}
	return next, rep, err
}

func (m *Machine) onManualRate(s AwaitingManualRate, ev Event) (State, model.Reply, error) {
	rate, err := textValue(ev, ParsePositive)
	if err != nil {
		return s, reprompt(s, err, "❌ Введите курс числом (например, 92,5):",
			"❌ Курс должен быть больше нуля. Введите курс:"), nil
	}
	next, rep, err := m.withRate(s.AmountOrigin, rate, model.RateSourceManual)
	if errors.Is(err, calculator.ErrOverflow) {
		return s, reply(s, "❌ Курс слишком мал для этой суммы. Введите другой курс:"), nil
	}
	return next, rep, err
}

func (m *Machine) withRate(amount, rate float64, source model.RateSource) (State, model.Reply, error) {
	foreign, err := calculator.Foreign(amount, rate)
	if errors.Is(err, calculator.ErrOverflow) {
		return nil, model.Reply{}, err
	}
	if err != nil {
		return nil, model.Reply{}, fmt.Errorf("%w: %v", ErrStateIntegrity, err)
	}
	next := AwaitingDropPercent{AmountOrigin: amount, Rate: rate, RateSource: source, AmountForeign: foreign}
	return next, reply(next, fmt.Sprintf("🔄 %s: 1 $ = %s ₽\n💵 Это: %s$\n\nВведите процент дропа (например, 25):",
		capitalized(sourceLabel(source)), model.Money(rate), model.Money(foreign))), nil
}

func (m *Machine) onDropPercent(s AwaitingDropPercent, ev Event) (State, model.Reply, error) {
	drop, err := textValue(ev, ParseDropPercent)
	if err != nil {
		return s, reprompt(s, err, "❌ Введите корректный процент дропа (число):",
			"❌ Процент дропа должен быть от 0 до 100 (не включая 100):"), nil
	}
	after, err := calculator.AfterDrop(s.AmountForeign, drop)
	if err != nil {
		return nil, model.Reply{}, fmt.Errorf("%w: %v", ErrStateIntegrity, err)
	}
	next := AwaitingParticipantCount{
		AmountOrigin:    s.AmountOrigin,
		Rate:            s.Rate,
		RateSource:      s.RateSource,
		AmountForeign:   s.AmountForeign,
		DropPercent:     drop,
		AmountAfterDrop: after,
	}
	return next, reply(next, fmt.Sprintf("📉 После дропа на %s%%: %s$\nСколько человек было в трубке? (целое число)",
		model.Percent(drop), model.Money(after))), nil
}

func (m *Machine) onParticipants(userID int64, s AwaitingParticipantCount, ev Event) (State, model.Reply, error) {
	people, err := textValue(ev, ParseCount)
	if err != nil {
		return s, reprompt(s, err, "❌ Введите целое число больше нуля:",
			"❌ Введите целое число больше нуля:"), nil
	}
	split, err := calculator.Calculate(s.AmountOrigin, s.Rate, s.DropPercent, people)
	if err != nil {
		return nil, model.Reply{}, fmt.Errorf("%w: %v", ErrStateIntegrity, err)
	}

	calc := &model.Calculation{
		ID:              m.NewID(),
		UserID:          userID,
		AmountOrigin:    s.AmountOrigin,
		Rate:            s.Rate,
		RateSource:      s.RateSource,
		AmountForeign:   split.AmountForeign,
		DropPercent:     s.DropPercent,
		AmountAfterDrop: split.AmountAfterDrop,
		MyShare:         split.MyShare,
		Participants:    people,
		PerPerson:       split.PerPerson,
		OriginEarned:    split.OriginEarned,
		Remark:          split.Remark,
		At:              m.Now(),
	}
	m.History.Append(userID, model.HistoryEntry{ID: calc.ID, Text: FormatSummary(calc), At: calc.At})
	if err := m.Recorder.RecordCalculation(calc); err != nil {
		log.Printf("[ERROR] record calculation %s: %v", calc.ID, err)
	}
	log.Printf("[INFO] user %d completed calculation %s: %.2f$ per person", userID, calc.ID, calc.PerPerson)
	return nil, model.Reply{Text: FormatResult(calc)}, nil
}

// textValue parses a free-text event; choice and other non-text events are
// format errors at numeric steps.
func textValue[T any](ev Event, parse func(string) (T, error)) (T, error) {
	if ev.Kind != KindText {
		var zero T
		return zero, fmt.Errorf("%w: expected text, got %s", ErrInputFormat, ev.Kind)
	}
	return parse(ev.Raw)
}

func reprompt(s State, err error, formatMsg, rangeMsg string) model.Reply {
	if errors.Is(err, ErrRange) {
		return reply(s, rangeMsg)
	}
	return reply(s, formatMsg)
}

func reply(s State, text string) model.Reply {
	return model.Reply{Text: text, Choices: Choices(s)}
}

func capitalized(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(append([]rune{unicode.ToUpper(r[0])}, r[1:]...))
}

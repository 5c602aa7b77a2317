package conversation

import (
	"strings"

	"SplitBot/internal/model"
)

// Reply keyboard labels.
const (
	LabelCachedRate = "📈 Курс ЦБ"
	LabelManualRate = "✏️ Свой курс"
	LabelCancel     = "❌ Отмена"
)

// EventKind enumerates everything an inbound message can mean.
type EventKind int

const (
	KindText EventKind = iota
	KindStart
	KindCancel
	KindHistory
	KindClearHistory
	KindHelp
	KindRate
	KindRateChoice
)

func (k EventKind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindCancel:
		return "cancel"
	case KindHistory:
		return "history"
	case KindClearHistory:
		return "clearhistory"
	case KindHelp:
		return "help"
	case KindRate:
		return "rate"
	case KindRateChoice:
		return "rate_choice"
	default:
		return "text"
	}
}

// Event is an inbound message translated at the transport boundary.
type Event struct {
	Kind   EventKind
	Source model.RateSource // KindRateChoice only
	Raw    string
}

var commands = map[string]EventKind{
	"start":        KindStart,
	"cancel":       KindCancel,
	"history":      KindHistory,
	"clearhistory": KindClearHistory,
	"help":         KindHelp,
	"rate":         KindRate,
}

// Translate maps raw chat text to an Event. Unknown slash commands become help.
func Translate(text string) Event {
	raw := strings.TrimSpace(text)
	ev := Event{Kind: KindText, Raw: raw}

	if strings.HasPrefix(raw, "/") {
		name := strings.Fields(raw)[0][1:]
		if i := strings.IndexByte(name, '@'); i >= 0 {
			name = name[:i]
		}
		if kind, ok := commands[strings.ToLower(name)]; ok {
			ev.Kind = kind
		} else {
			ev.Kind = KindHelp
		}
		return ev
	}

	switch raw {
	case LabelCachedRate:
		ev.Kind, ev.Source = KindRateChoice, model.RateSourceRemote
	case LabelManualRate:
		ev.Kind, ev.Source = KindRateChoice, model.RateSourceManual
	case LabelCancel:
		ev.Kind = KindCancel
	default:
		switch strings.ToLower(raw) {
		case "cancel", "отмена":
			ev.Kind = KindCancel
		}
	}
	return ev
}

package conversation

import (
	"fmt"
	"strings"

	"SplitBot/internal/model"
)

func sourceLabel(s model.RateSource) string {
	if s == model.RateSourceManual {
		return "ваш курс"
	}
	return "курс ЦБ РФ"
}

func remarkText(r model.RemarkTier) string {
	switch r {
	case model.RemarkLow:
		return "😕 Негусто. В следующий раз повезёт больше!"
	case model.RemarkHigh:
		return "🔥 Отличный закрыв!"
	default:
		return ""
	}
}

// FormatResult renders the final report of a calculation.
func FormatResult(c *model.Calculation) string {
	var b strings.Builder
	b.WriteString("✅ Итоги расчёта:\n")
	b.WriteString(fmt.Sprintf("• Сумма: %s ₽ = %s$ (%s: 1 $ = %s ₽)\n",
		model.Money(c.AmountOrigin), model.Money(c.AmountForeign), sourceLabel(c.RateSource), model.Money(c.Rate)))
	b.WriteString(fmt.Sprintf("• После дропа (%s%%): %s$\n", model.Percent(c.DropPercent), model.Money(c.AmountAfterDrop)))
	b.WriteString(fmt.Sprintf("• Моя доля (25%%): %s$\n", model.Money(c.MyShare)))
	b.WriteString(fmt.Sprintf("• Людей: %d\n", c.Participants))
	b.WriteString(fmt.Sprintf("• Твой заработок: %s$ (~%s₽)", model.Money(c.PerPerson), model.Money(c.OriginEarned)))
	if r := remarkText(c.Remark); r != "" {
		b.WriteString("\n\n" + r)
	}
	return b.String()
}

// FormatSummary renders the one-line history record of a calculation.
func FormatSummary(c *model.Calculation) string {
	return fmt.Sprintf("%s ₽ → %s$ на человека (~%s₽) | курс %s, дроп %s%%, людей %d",
		model.Money(c.AmountOrigin), model.Money(c.PerPerson), model.Money(c.OriginEarned),
		model.Money(c.Rate), model.Percent(c.DropPercent), c.Participants)
}

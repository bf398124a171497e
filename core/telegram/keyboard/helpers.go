// Package keyboard builds Telegram reply markups.
package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn is a callback button. Data is sent back verbatim when pressed.
type InlineBtn struct {
	Text string
	Data string
}

// InlineRows builds an inline keyboard from rows of buttons. Empty rows are
// skipped and nil is returned when nothing remains.
func InlineRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, len(row))
		for i, b := range row {
			r[i] = tele.InlineButton{Text: b.Text, Data: b.Data}
		}
		inline = append(inline, r)
	}
	if len(inline) == 0 {
		return nil
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}

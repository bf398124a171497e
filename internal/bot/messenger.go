package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bingwamta/databot/core/telegram/keyboard"
	"github.com/bingwamta/databot/core/telegram/middleware"
	"github.com/bingwamta/databot/core/telegram/sender"
	"github.com/bingwamta/databot/internal/chat"

	tele "gopkg.in/telebot.v4"
)

// API is the part of *tele.Bot the messenger uses.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
}

// Messenger implements chat.Messenger on the Telegram Bot API. Sends and
// edits are synchronous; deletes go through the dispatcher when one is set.
type Messenger struct {
	api  API
	disp *sender.Dispatcher
}

var _ chat.Messenger = (*Messenger)(nil)

// NewMessenger wraps api. disp may be nil.
func NewMessenger(api API, disp *sender.Dispatcher) *Messenger {
	return &Messenger{api: api, disp: disp}
}

// Send delivers msg to chatID.
func (m *Messenger) Send(ctx context.Context, chatID int64, msg chat.Message) (chat.Handle, error) {
	opts := sendOptions(msg)
	sent, err := m.api.Send(tele.ChatID(chatID), msg.Text, opts)
	if err != nil {
		return chat.Handle{}, fmt.Errorf("telegram send: %w", err)
	}
	middleware.CountSent(ctx, opts.ReplyMarkup != nil)
	h := chat.Handle{ChatID: chatID, MessageID: strconv.Itoa(sent.ID)}
	if sent.Chat != nil {
		h.ChatID = sent.Chat.ID
	}
	return h, nil
}

// Edit replaces the text and keyboard of a sent message. Editing to identical
// content is not an error.
func (m *Messenger) Edit(ctx context.Context, h chat.Handle, msg chat.Message) error {
	if h.IsZero() {
		return errors.New("telegram edit: empty handle")
	}
	opts := sendOptions(msg)
	_, err := m.api.Edit(stored(h), msg.Text, opts)
	if err != nil && !isNotModified(err) {
		return fmt.Errorf("telegram edit: %w", err)
	}
	middleware.CountSent(ctx, opts.ReplyMarkup != nil)
	return nil
}

// Delete removes a message. Failures are logged by the dispatcher.
func (m *Messenger) Delete(ctx context.Context, h chat.Handle) error {
	if h.IsZero() {
		return nil
	}
	run := func(context.Context) error { return m.api.Delete(stored(h)) }
	if m.disp == nil {
		return run(ctx)
	}
	return m.disp.Do(ctx, "delete_message", run)
}

func stored(h chat.Handle) tele.StoredMessage {
	return tele.StoredMessage{MessageID: h.MessageID, ChatID: h.ChatID}
}

func sendOptions(msg chat.Message) *tele.SendOptions {
	opts := &tele.SendOptions{ReplyMarkup: markup(msg.Buttons)}
	if msg.Markdown {
		opts.ParseMode = tele.ModeMarkdown
	}
	return opts
}

func markup(rows [][]chat.Button) *tele.ReplyMarkup {
	kb := make([][]keyboard.InlineBtn, len(rows))
	for i, row := range rows {
		kb[i] = make([]keyboard.InlineBtn, len(row))
		for j, b := range row {
			kb[i][j] = keyboard.InlineBtn{Text: b.Label, Data: b.Data}
		}
	}
	return keyboard.InlineRows(kb...)
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}

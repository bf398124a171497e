// Package bot adapts Telegram updates to the conversation and admin engines.
package bot

import (
	"context"
	"errors"
	"strconv"

	tg "github.com/bingwamta/databot/core/telegram"
	"github.com/bingwamta/databot/core/telegram/callbacks"
	tghelpers "github.com/bingwamta/databot/core/telegram/helpers"
	"github.com/bingwamta/databot/core/telegram/middleware"
	"github.com/bingwamta/databot/core/telegram/router"
	"github.com/bingwamta/databot/core/telegram/state"
	"github.com/bingwamta/databot/internal/admin"
	"github.com/bingwamta/databot/internal/catalog"
	"github.com/bingwamta/databot/internal/chat"
	"github.com/bingwamta/databot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

// Engine consumes chat events.
type Engine interface {
	Handle(ctx context.Context, ev chat.Event) error
}

// Admin is the operator panel as seen by the transport.
type Admin interface {
	Engine
	Active(key state.Key) bool
	Broadcasting(key state.Key) bool
	Authorized(userID int64) bool
}

// Adapter routes Telegram updates to the engines.
type Adapter struct {
	conv    Engine
	admin   Admin
	catalog *catalog.Catalog
}

// New builds an Adapter.
func New(conv Engine, adm Admin, cat *catalog.Catalog) (*Adapter, error) {
	if conv == nil || adm == nil || cat == nil {
		return nil, errors.New("bot: conversation, admin and catalog are required")
	}
	return &Adapter{conv: conv, admin: adm, catalog: cat}, nil
}

// Register declares commands, button callbacks and fallbacks on reg.
func (a *Adapter) Register(reg *tg.Registry) error {
	cmds := []struct {
		name string
		cmd  tg.Command
	}{
		{conversation.CmdStart, tg.Command{Description: "Start the bot", Handler: a.command(conversation.CmdStart)}},
		{conversation.CmdBundles, tg.Command{Description: "View available data bundles", Handler: a.command(conversation.CmdBundles), Aliases: []string{"deals", "offers"}}},
		{conversation.CmdHelp, tg.Command{Description: "How to buy a bundle", Handler: a.command(conversation.CmdHelp)}},
		{conversation.CmdAbout, tg.Command{Description: "About this bot", Handler: a.command(conversation.CmdAbout)}},
		{conversation.CmdSupport, tg.Command{Description: "Contact customer support", Handler: a.command(conversation.CmdSupport)}},
		{conversation.CmdCancel, tg.Command{Description: "Cancel the current operation", Handler: a.onCancel}},
		{conversation.CmdRestart, tg.Command{Description: "Start over", Handler: a.onRestart}},
		{admin.CmdAdmin, tg.Command{Description: "Open the admin panel", Handler: a.onAdmin, AdminOnly: true}},
	}
	var errs []error
	for _, c := range cmds {
		errs = append(errs, reg.RegisterCommand("/"+c.name, c.cmd))
	}

	// conversation.Buttons already carries the category keys.
	keys := append([]string(nil), conversation.Buttons...)
	for _, o := range a.catalog.All() {
		keys = append(keys, o.ID)
	}
	for _, k := range keys {
		errs = append(errs, reg.RegisterCallback(k, a.onButton))
	}
	for _, k := range admin.Buttons {
		errs = append(errs, reg.RegisterCallback(k, a.onAdminButton))
	}

	// Stale or unknown buttons still reach the conversation, which answers
	// with the expired-menu hint or the invalid-selection menu.
	reg.SetCallbackNotFound(a.onButton)
	reg.SetTextFallback(a.onText)
	return errors.Join(errs...)
}

// Routes builds the telebot routes for reg.
func (a *Adapter) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		Admin: middleware.AdminOptions{IsAdmin: a.admin.Authorized, OnReject: a.onAdmin},
	})
	routes = append(routes, router.CallbackRoute(reg))
	return append(routes, router.TextRoutes(reg, router.TextOptions{Interceptor: a})...)
}

// Intercepts claims text while the sender is composing a broadcast.
func (a *Adapter) Intercepts(c tele.Context) bool {
	return a.admin.Broadcasting(key(c))
}

// Handle passes intercepted text to the admin engine.
func (a *Adapter) Handle(c tele.Context) error {
	return a.admin.Handle(tghelpers.BuildContext(c), event(c, chat.KindText, ""))
}

func (a *Adapter) command(name string) tele.HandlerFunc {
	return func(c tele.Context) error {
		return a.conv.Handle(tghelpers.BuildContext(c), event(c, chat.KindCommand, name))
	}
}

func (a *Adapter) onCancel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	ev := event(c, chat.KindCommand, conversation.CmdCancel)
	if a.admin.Active(key(c)) {
		return a.admin.Handle(ctx, ev)
	}
	return a.conv.Handle(ctx, ev)
}

// onRestart closes any admin panel silently, then restarts the purchase flow.
func (a *Adapter) onRestart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	ev := event(c, chat.KindCommand, conversation.CmdRestart)
	return errors.Join(a.admin.Handle(ctx, ev), a.conv.Handle(ctx, ev))
}

func (a *Adapter) onAdmin(c tele.Context) error {
	return a.admin.Handle(tghelpers.BuildContext(c), event(c, chat.KindCommand, admin.CmdAdmin))
}

func (a *Adapter) onAdminButton(c tele.Context) error {
	return a.admin.Handle(tghelpers.BuildContext(c), event(c, chat.KindButton, callbacks.Key(c)))
}

func (a *Adapter) onButton(c tele.Context) error {
	return a.conv.Handle(tghelpers.BuildContext(c), event(c, chat.KindButton, callbacks.Key(c)))
}

func (a *Adapter) onText(c tele.Context) error {
	return a.conv.Handle(tghelpers.BuildContext(c), event(c, chat.KindText, ""))
}

func key(c tele.Context) state.Key {
	userID, chatID := ids(c)
	return state.Key{UserID: userID, ChatID: chatID}
}

// ids falls back to the user id for updates without a chat.
func ids(c tele.Context) (userID, chatID int64) {
	userID, chatID = tghelpers.Sender(c)
	if chatID == 0 {
		chatID = userID
	}
	return userID, chatID
}

func event(c tele.Context, kind chat.Kind, name string) chat.Event {
	_, chatID := ids(c)
	ev := chat.Event{Kind: kind, Name: name, ChatID: chatID}
	if u := c.Sender(); u != nil {
		ev.User = chat.Identity{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName}
	}
	switch kind {
	case chat.KindButton:
		ev.Data = name
		if cb := c.Callback(); cb != nil && cb.Message != nil {
			ev.Source = chat.Handle{ChatID: chatID, MessageID: strconv.Itoa(cb.Message.ID)}
		}
	case chat.KindText:
		ev.Text = c.Text()
	}
	return ev
}

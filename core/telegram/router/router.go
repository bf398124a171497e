// Package router turns a Registry into telebot routes with summary logging.
package router

import (
	"log/slog"
	"strings"

	"github.com/bingwamta/databot/core/logger"
	tg "github.com/bingwamta/databot/core/telegram"
	"github.com/bingwamta/databot/core/telegram/callbacks"
	"github.com/bingwamta/databot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures command wiring.
type CommandRouteOptions struct {
	Admin middleware.AdminOptions
}

// CommandRoutes builds one route per registered command. Admin-only commands
// are wrapped with the allow-list gate.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for name, def := range cmds {
		handlerName := "command." + normalizeHandlerName(name)
		h := def.Handler
		if def.AdminOnly {
			h = middleware.AdminOnlyMiddleware(opts.Admin)(h)
		}
		handler := func(c tele.Context) error {
			return handleWithSummary(c, handlerName, func() error { return h(c) })
		}
		routes = append(routes, tg.Route{Endpoint: name, Handler: handler})
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "commands"),
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}

// CallbackRoute routes every callback through the registry, falling back to
// the registry's not-found handler.
func CallbackRoute(reg *tg.Registry) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key := callbacks.Key(c)
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", logger.SanitizeLimit(key, 64))}

		// Stop the client spinner before the handler runs; handlers may take a while.
		_ = c.Respond()

		h, ok := reg.Callback(key)
		if !ok {
			h = reg.CallbackNotFound()
			extras = append(extras, slog.String("reason", "not_found"))
		}
		if h == nil {
			logHandlerSummary(c, name, updateStart(c), "skip", nil, extras...)
			return nil
		}
		return handleWithSummary(c, name, func() error { return h(c) }, extras...)
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: handler}
}

// Interceptor claims text updates ahead of the normal routing, e.g. while an
// operator is composing a broadcast.
type Interceptor interface {
	Intercepts(c tele.Context) bool
	Handle(c tele.Context) error
}

// TextOptions configures text routing.
type TextOptions struct {
	Interceptor Interceptor
	// UnknownMedia handles non-text messages. Nil drops them.
	UnknownMedia tele.HandlerFunc
}

// TextRoutes routes plain text: interceptor first, then command aliases, then
// the registry text fallback.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		if opts.Interceptor != nil && opts.Interceptor.Intercepts(c) {
			return handleWithSummary(c, "intercept", func() error { return opts.Interceptor.Handle(c) })
		}
		if strings.HasPrefix(c.Text(), "/") {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok {
				return handleWithSummary(c, "command."+normalizeHandlerName(key), func() error { return cmd.Handler(c) })
			}
		}
		if fb := reg.TextFallback(); fb != nil {
			return handleWithSummary(c, "text", func() error { return fb(c) })
		}
		logHandlerSummary(c, "text", updateStart(c), "skip", nil)
		return nil
	}

	media := func(c tele.Context) error {
		if opts.UnknownMedia != nil {
			return handleWithSummary(c, "media", func() error { return opts.UnknownMedia(c) })
		}
		logHandlerSummary(c, "media", updateStart(c), "skip", nil)
		return nil
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: text},
		{Endpoint: tele.OnMedia, Handler: media},
		{Endpoint: tele.OnContact, Handler: media},
		{Endpoint: tele.OnLocation, Handler: media},
	}
}

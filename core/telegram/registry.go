package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/bingwamta/databot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// Command is a slash command exposed by the bot.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands are gated by the allow-list and left out of the public menu.
	AdminOnly bool
	Hidden    bool
	Aliases   []string
}

// Registry holds bot commands and callback handlers.
type Registry struct {
	mu               sync.RWMutex
	commands         map[string]Command
	callbacks        map[string]tele.HandlerFunc
	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]Command),
		callbacks: make(map[string]tele.HandlerFunc),
	}
}

// RegisterCommand adds a command. name must start with a slash.
func (r *Registry) RegisterCommand(name string, cmd Command) error {
	switch {
	case cmd.Handler == nil || cmd.Description == "":
		return r.skip("command", name, "invalid")
	case !strings.HasPrefix(name, "/") || len(name) < 2:
		return r.skip("command", name, "no_slash_prefix")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		return r.skip("command", name, "duplicate")
	}
	r.commands[name] = cmd
	return nil
}

// RegisterCallback maps a button id to handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		return r.skip("callback", key, "invalid")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		return r.skip("callback", key, "duplicate")
	}
	r.callbacks[key] = handler
	return nil
}

func (r *Registry) skip(kind, name, reason string) error {
	logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register."+kind+".skip",
		slog.String("name", name),
		slog.String("reason", reason),
	)
	return fmt.Errorf("telegram: register %s %q: %s", kind, name, reason)
}

// ListCommands returns the menu entries, without the leading slash, sorted by
// name. visibleOnly drops hidden and admin-only commands.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tele.Command, 0, len(r.commands))
	for name, meta := range r.commands {
		if visibleOnly && (meta.Hidden || meta.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves name or one of its aliases to the canonical command.
func (r *Registry) LookupCommand(name string) (string, Command, bool) {
	name = strings.TrimSpace(name)
	if i := strings.IndexAny(name, " @"); i >= 0 {
		name = name[:i]
	}
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	name = strings.ToLower(name)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if "/"+strings.TrimPrefix(alias, "/") == name {
				return key, cmd, true
			}
		}
	}
	return "", Command{}, false
}

// Commands returns a copy of the registered commands.
func (r *Registry) Commands() map[string]Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Command, len(r.commands))
	for k, v := range r.commands {
		out[k] = v
	}
	return out
}

// Callback returns the handler registered for key.
func (r *Registry) Callback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the sorted callback keys.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetCallbackNotFound sets the handler for unregistered callback keys.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	r.mu.Lock()
	r.callbackNotFound = h
	r.mu.Unlock()
}

// CallbackNotFound returns the handler for unregistered callback keys.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// SetTextFallback sets the handler for plain text that is not a command.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.mu.Lock()
	r.textFallback = h
	r.mu.Unlock()
}

// TextFallback returns the plain text handler.
func (r *Registry) TextFallback() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textFallback
}

// CommandSetter publishes the command menu. *tele.Bot implements it.
type CommandSetter interface {
	SetCommands(opts ...interface{}) error
}

// PublishCommands sets the public command menu shown by Telegram clients.
func PublishCommands(bot CommandSetter, reg *Registry) error {
	list := reg.ListCommands(true)
	if err := bot.SetCommands(list); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			logger.Err(err),
		)
		return fmt.Errorf("telegram: set commands: %w", err)
	}
	names := make([]string, len(list))
	for i, c := range list {
		names[i] = c.Text
	}
	summary, _ := logger.SummarizeStrings(names, 16)
	logger.TWire.LogAttrs(context.Background(), slog.LevelInfo, "register.commands.published",
		slog.Int("count", len(list)),
		slog.String("commands", summary),
	)
	return nil
}

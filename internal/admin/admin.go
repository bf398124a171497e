// Package admin implements the operator panel: broadcasts and usage stats.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bingwamta/databot/core/logger"
	"github.com/bingwamta/databot/core/telegram/state"
	"github.com/bingwamta/databot/internal/chat"
	"github.com/bingwamta/databot/internal/directory"
)

const component = "admin"

// State is a step of the admin panel.
type State int

const (
	Idle State = iota
	Menu
	Broadcasting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Menu:
		return "menu"
	case Broadcasting:
		return "broadcasting"
	}
	return "unknown"
}

// Session is the admin panel progress of one (user, chat).
type Session struct {
	State State
}

// Command and button ids.
const (
	CmdAdmin   = "admin"
	CmdCancel  = "cancel"
	CmdRestart = "restart"

	BtnBroadcast = "admin_broadcast"
	BtnStats     = "admin_stats"
	BtnExit      = "admin_exit"
)

// Buttons lists the admin button ids.
var Buttons = []string{BtnBroadcast, BtnStats, BtnExit}

const (
	DefaultConcurrency    = 4
	DefaultProgressEvery  = 10
	DefaultSessionTimeout = 10 * time.Minute
)

// Config tunes the admin engine.
type Config struct {
	AdminIDs []int64
	// Concurrency bounds parallel broadcast deliveries.
	Concurrency int
	// ProgressEvery is the number of successful deliveries between progress edits.
	ProgressEvery  int
	SessionTimeout time.Duration
}

// Deps are the collaborators of an Engine.
type Deps struct {
	Directory directory.Directory
	Messenger chat.Messenger
	Now       func() time.Time
}

// Engine runs the admin panel for allow-listed users.
type Engine struct {
	cfg      Config
	admins   map[int64]struct{}
	dir      directory.Directory
	msg      chat.Messenger
	sessions *state.Store[Session]
	now      func() time.Time
}

// New builds an Engine. An empty allow-list is valid and denies everyone.
func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Directory == nil {
		return nil, errors.New("admin: directory is required")
	}
	if deps.Messenger == nil {
		return nil, errors.New("admin: messenger is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = DefaultProgressEvery
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = DefaultSessionTimeout
	}
	e := &Engine{
		cfg:    cfg,
		admins: make(map[int64]struct{}, len(cfg.AdminIDs)),
		dir:    deps.Directory,
		msg:    deps.Messenger,
		now:    deps.Now,
	}
	if e.now == nil {
		e.now = time.Now
	}
	for _, id := range cfg.AdminIDs {
		e.admins[id] = struct{}{}
	}
	e.sessions = state.NewStore(state.Options[Session]{
		Name: component,
		TTL:  cfg.SessionTimeout,
		Now:  e.now,
	})
	return e, nil
}

// Authorized reports whether userID is on the allow-list.
func (e *Engine) Authorized(userID int64) bool {
	_, ok := e.admins[userID]
	return ok
}

// Active reports whether key has an open admin panel.
func (e *Engine) Active(key state.Key) bool {
	s, ok := e.sessions.Peek(key)
	return ok && s.State != Idle
}

// Broadcasting reports whether key is composing a broadcast.
func (e *Engine) Broadcasting(key state.Key) bool {
	s, ok := e.sessions.Peek(key)
	return ok && s.State == Broadcasting
}

// Run sweeps idle admin sessions until ctx ends.
func (e *Engine) Run(ctx context.Context) {
	e.sessions.Run(ctx, e.cfg.SessionTimeout/3)
}

// Handle applies one admin event.
func (e *Engine) Handle(ctx context.Context, ev chat.Event) error {
	key := state.Key{UserID: ev.User.ID, ChatID: ev.ChatID}
	if !e.Authorized(ev.User.ID) {
		if ev.Kind == chat.KindText || ev.Name == CmdRestart || ev.Name == CmdCancel {
			return nil
		}
		logger.Warn(ctx, component, "access.denied",
			slog.String("kind", ev.Kind.String()),
			slog.String("name", ev.Name),
		)
		return e.reply(ctx, ev.ChatID, chat.Text(deniedText))
	}

	err := e.sessions.With(key, func(s *Session) error {
		from := s.State
		err := e.dispatch(ctx, ev, s)
		if s.State != from {
			logger.Info(ctx, component, "transition",
				slog.String("from_state", from.String()),
				slog.String("to_state", s.State.String()),
				slog.String("name", ev.Name),
			)
		}
		return err
	})
	if !e.Active(key) {
		e.sessions.Delete(key)
	}
	return err
}

func (e *Engine) dispatch(ctx context.Context, ev chat.Event, s *Session) error {
	switch ev.Kind {
	case chat.KindCommand:
		switch ev.Name {
		case CmdAdmin:
			logger.Info(ctx, component, "panel.open")
			s.State = Menu
			return e.reply(ctx, ev.ChatID, panelMessage())
		case CmdCancel:
			return e.cancel(ctx, ev, s)
		case CmdRestart:
			s.State = Idle
			return nil
		}
	case chat.KindButton:
		if s.State == Idle {
			return e.reply(ctx, ev.ChatID, chat.Text(closedText))
		}
		switch ev.Name {
		case BtnExit:
			s.State = Idle
			return e.reply(ctx, ev.ChatID, chat.Text("Admin panel closed."))
		case BtnBroadcast:
			s.State = Broadcasting
			return e.reply(ctx, ev.ChatID, broadcastPrompt())
		case BtnStats:
			return e.stats(ctx, ev)
		}
	case chat.KindText:
		if s.State != Broadcasting {
			return nil
		}
		if strings.EqualFold(strings.TrimSpace(ev.Text), "/"+CmdCancel) {
			return e.cancel(ctx, ev, s)
		}
		return e.broadcast(ctx, ev, s)
	}
	logger.Debug(ctx, component, "event.ignored",
		slog.String("kind", ev.Kind.String()),
		slog.String("name", ev.Name),
		slog.String("state", s.State.String()),
	)
	return nil
}

func (e *Engine) cancel(ctx context.Context, ev chat.Event, s *Session) error {
	prev := s.State
	s.State = Idle
	switch prev {
	case Broadcasting:
		return e.reply(ctx, ev.ChatID, chat.Text("Broadcast cancelled."))
	case Menu:
		return e.reply(ctx, ev.ChatID, chat.Text("Admin operation cancelled."))
	}
	return nil
}

func (e *Engine) stats(ctx context.Context, ev chat.Event) error {
	st, err := e.dir.Stats(ctx, e.now())
	if err != nil {
		logger.Error(ctx, component, "stats.failed", logger.Err(err))
		return errors.Join(err, e.reply(ctx, ev.ChatID, chat.Text("Could not load statistics. Please try again later.")))
	}
	return e.reply(ctx, ev.ChatID, statsMessage(st))
}

// Tally is the result of one broadcast.
type Tally struct {
	Total  int
	Sent   int
	Failed int
}

func (e *Engine) broadcast(ctx context.Context, ev chat.Event, s *Session) error {
	users, err := e.dir.List(ctx)
	if err != nil {
		logger.Error(ctx, component, "broadcast.list_failed", logger.Err(err))
		s.State = Menu
		return errors.Join(err, e.reply(ctx, ev.ChatID, chat.Text("Could not load users. Please try again later.")))
	}
	if len(users) == 0 {
		s.State = Idle
		return e.reply(ctx, ev.ChatID, chat.Text("No users found in the database."))
	}

	start := e.now()
	status, statusErr := e.msg.Send(ctx, ev.ChatID, chat.Text(progressStartText))
	if statusErr != nil {
		logger.Warn(ctx, component, "broadcast.status_failed", logger.Err(statusErr))
	}

	tally := e.deliver(ctx, users, broadcastMessage(ev.Text), status)

	logger.Info(ctx, component, "broadcast.done",
		slog.Int("total", tally.Total),
		slog.Int("sent", tally.Sent),
		slog.Int("failed", tally.Failed),
		slog.Duration("duration", e.now().Sub(start)),
	)

	final := tallyMessage(tally)
	var errs []error
	if status.IsZero() {
		errs = append(errs, e.reply(ctx, ev.ChatID, final))
	} else if err := e.msg.Edit(ctx, status, final); err != nil {
		logger.Warn(ctx, component, "broadcast.edit_failed", logger.Err(err))
		errs = append(errs, e.reply(ctx, ev.ChatID, final))
	}
	s.State = Menu
	errs = append(errs, e.reply(ctx, ev.ChatID, followUpMessage()))
	return errors.Join(errs...)
}

// deliver sends msg to every user once with bounded concurrency. Individual
// failures are counted, never retried.
func (e *Engine) deliver(ctx context.Context, users []directory.Profile, msg chat.Message, status chat.Handle) Tally {
	var (
		sent, failed atomic.Int64
		progressMu   sync.Mutex
		shown        int64
	)
	total := len(users)

	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for _, u := range users {
		g.Go(func() error {
			if _, err := e.msg.Send(ctx, u.ID, msg); err != nil {
				failed.Add(1)
				logger.Warn(ctx, component, "broadcast.send_failed",
					slog.Int64("user_id", u.ID),
					logger.Err(err),
				)
				return nil
			}
			n := sent.Add(1)
			if status.IsZero() || n%int64(e.cfg.ProgressEvery) != 0 {
				return nil
			}
			progressMu.Lock()
			defer progressMu.Unlock()
			if n <= shown {
				return nil
			}
			shown = n
			if err := e.msg.Edit(ctx, status, chat.Text(progressText(int(n), total))); err != nil {
				logger.Debug(ctx, component, "broadcast.progress_failed", logger.Err(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	return Tally{Total: total, Sent: int(sent.Load()), Failed: int(failed.Load())}
}

func (e *Engine) reply(ctx context.Context, chatID int64, msg chat.Message) error {
	if _, err := e.msg.Send(ctx, chatID, msg); err != nil {
		logger.Warn(ctx, component, "send.failed", logger.Err(err))
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

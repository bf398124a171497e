// Package app assembles the bot process: storage, payment gateway, engines
// and the Telegram route table.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bingwamta/databot/core/bootstrap"
	coredatabase "github.com/bingwamta/databot/core/database"
	"github.com/bingwamta/databot/core/logger"
	tg "github.com/bingwamta/databot/core/telegram"
	"github.com/bingwamta/databot/core/telegram/sender"
	"github.com/bingwamta/databot/internal/admin"
	"github.com/bingwamta/databot/internal/bot"
	"github.com/bingwamta/databot/internal/catalog"
	"github.com/bingwamta/databot/internal/conversation"
	"github.com/bingwamta/databot/internal/directory"
	"github.com/bingwamta/databot/internal/payment"
	"github.com/bingwamta/databot/migrations"

	tele "gopkg.in/telebot.v4"
)

const limitedText = "Please slow down."

// App is a bootstrapped bot ready to run.
type App struct {
	cfg *Config

	store    directory.Directory
	bot      *tele.Bot
	disp     *sender.Dispatcher
	registry *tg.Registry

	conv   *conversation.Engine
	admin  *admin.Engine
	routes []tg.Route
}

// Option overrides a collaborator, mainly for tests.
type Option func(*options)

type options struct {
	bot      *tele.Bot
	store    directory.Directory
	payments payment.Charger
}

// WithBot uses b instead of contacting Telegram to build one.
func WithBot(b *tele.Bot) Option { return func(o *options) { o.bot = b } }

// WithDirectory skips opening the configured storage.
func WithDirectory(d directory.Directory) Option { return func(o *options) { o.store = d } }

// WithCharger replaces the PayHero gateway.
func WithCharger(c payment.Charger) Option { return func(o *options) { o.payments = c } }

// PostgreSQL entry points, replaced in tests.
var (
	openPostgres = func(ctx context.Context, cfg coredatabase.Config) (directory.Directory, error) {
		return directory.OpenPostgres(ctx, cfg, migrations.FS)
	}
	connectPostgres = func(ctx context.Context, cfg coredatabase.Config) (directory.Directory, error) {
		return directory.ConnectPostgres(ctx, cfg)
	}
)

// OpenDirectory opens the backend selected by cfg.Storage.
func OpenDirectory(ctx context.Context, cfg *Config) (directory.Directory, error) {
	switch cfg.Storage.Driver {
	case DriverSQLite:
		return directory.OpenSQLite(ctx, cfg.Storage.SQLitePath)
	case DriverPostgres:
		return openPostgres(ctx, cfg.Database)
	case DriverFile, "":
		return directory.OpenFile(cfg.Storage.UsersFile)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// InspectDirectory opens the configured backend for read-only tools. Unlike
// OpenDirectory it never migrates PostgreSQL.
func InspectDirectory(ctx context.Context, cfg *Config) (directory.Directory, error) {
	if cfg.Storage.Driver == DriverPostgres {
		return connectPostgres(ctx, cfg.Database)
	}
	return OpenDirectory(ctx, cfg)
}

// New initialises logging and storage, then builds the engines.
func New(ctx context.Context, cfg *Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store, err := bootstrap.Run(ctx, bootstrap.Options[directory.Directory]{
		Config:      &cfg.Config,
		StorageName: cfg.Storage.Driver,
		OpenStorage: func(ctx context.Context) (directory.Directory, error) {
			if o.store != nil {
				return o.store, nil
			}
			return OpenDirectory(ctx, cfg)
		},
	})
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, store: store}
	if err := a.build(o); err != nil {
		a.disp.Close()
		return nil, errors.Join(err, store.Close())
	}
	return a, nil
}

func (a *App) build(o options) error {
	a.disp = sender.NewDispatcher(sender.Options{})

	a.bot = o.bot
	if a.bot == nil {
		b, err := tg.NewBot(&a.cfg.Config)
		if err != nil {
			return err
		}
		a.bot = b
	}

	payments := o.payments
	if payments == nil {
		gw, err := payment.NewGateway(a.cfg.paymentConfig())
		if err != nil {
			return err
		}
		payments = gw
	}

	cat := catalog.Default()
	msg := bot.NewMessenger(a.bot, a.disp)

	conv, err := conversation.New(a.cfg.conversationConfig(), conversation.Deps{
		Catalog:   cat,
		Directory: a.store,
		Payments:  payments,
		Messenger: msg,
	})
	if err != nil {
		return err
	}
	adm, err := admin.New(admin.Config{
		AdminIDs:    a.cfg.Telegram.AdminIDs,
		Concurrency: a.cfg.Bot.BroadcastConcurrency,
	}, admin.Deps{
		Directory: a.store,
		Messenger: msg,
	})
	if err != nil {
		return err
	}
	a.conv, a.admin = conv, adm

	adapter, err := bot.New(conv, adm, cat)
	if err != nil {
		return err
	}
	a.registry = tg.NewRegistry()
	if err := adapter.Register(a.registry); err != nil {
		return fmt.Errorf("app: register handlers: %w", err)
	}
	a.routes = adapter.Routes(a.registry)
	return nil
}

// Directory exposes the opened user directory.
func (a *App) Directory() directory.Directory { return a.store }

// TelegramRunOptions implements cmd.TelegramApp. The session sweepers start
// with the bot and stop with ctx.
func (a *App) TelegramRunOptions(ctx context.Context) (tg.RunOptions, error) {
	return tg.RunOptions{
		Config:      &a.cfg.Config,
		Bot:         a.bot,
		Registry:    a.registry,
		Dispatcher:  a.disp,
		Middlewares: tg.DefaultMiddlewares(&a.cfg.Config, onLimited),
		Routes:      a.routes,
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			go a.conv.Run(ctx)
			go a.admin.Run(ctx)
			logger.Info(ctx, "app", "engines.started",
				slog.String("storage", a.cfg.Storage.Driver),
				slog.Int("admins", len(a.cfg.Telegram.AdminIDs)),
				slog.Int("routes", len(a.routes)),
			)
			return nil
		},
	}, nil
}

// Close releases the dispatcher and the directory.
func (a *App) Close() error {
	a.disp.Close()
	return a.store.Close()
}

// onLimited answers throttled button presses so the client stops spinning;
// throttled messages are dropped.
func onLimited(c tele.Context) error {
	if c.Callback() == nil {
		return nil
	}
	return c.Respond(&tele.CallbackResponse{Text: limitedText})
}

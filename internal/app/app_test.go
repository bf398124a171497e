package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coredatabase "github.com/bingwamta/databot/core/database"
	"github.com/bingwamta/databot/internal/directory"
	"github.com/bingwamta/databot/internal/payment"
)

type stubCharger struct{}

func (stubCharger) Charge(context.Context, payment.ChargeRequest) payment.Result {
	return payment.Result{Outcome: payment.Pending}
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{}
	cfg.Telegram.Token = "123:token"
	cfg.Telegram.RunMode = "longpoll"
	cfg.Telegram.AdminIDs = []int64{1000}
	cfg.RateLimit.IntervalMS = 500
	cfg.Payment.Username, cfg.Payment.Password = "user", "secret"
	cfg.Storage.UsersFile = filepath.Join(t.TempDir(), "user_data.json")
	require.NoError(t, cfg.normalize())
	return cfg
}

func newTestApp(t *testing.T, cfg *Config, opts ...Option) *App {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	a, err := New(context.Background(), cfg, append([]Option{WithBot(b), WithCharger(stubCharger{})}, opts...)...)
	require.NoError(t, err)
	return a
}

func TestNewWiresRegistry(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	defer func() { require.NoError(t, a.Close()) }()

	for _, name := range []string{"/start", "/bundles", "/deals", "/help", "/about", "/support", "/cancel", "/restart", "/admin"} {
		_, _, ok := a.registry.LookupCommand(name)
		assert.True(t, ok, name)
	}
	for _, key := range []string{"bingwa_deals", "normal_deals", "data_1", "data_11", "confirm_purchase", "admin_broadcast"} {
		_, ok := a.registry.Callback(key)
		assert.True(t, ok, key)
	}
	_, admin, _ := a.registry.LookupCommand("/admin")
	assert.True(t, admin.AdminOnly)
}

func TestTelegramRunOptions(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	defer func() { require.NoError(t, a.Close()) }()

	opts, err := a.TelegramRunOptions(context.Background())
	require.NoError(t, err)

	assert.Same(t, a.bot, opts.Bot)
	assert.Same(t, a.registry, opts.Registry)
	assert.NotNil(t, opts.Dispatcher)
	assert.NotEmpty(t, opts.Routes)
	assert.NotNil(t, opts.OnStart)

	var names []string
	for _, mw := range opts.Middlewares {
		names = append(names, mw.Name)
	}
	assert.Equal(t, []string{"recover", "rate_limit", "logger", "metrics"}, names)
}

func TestNewUsesInjectedDirectory(t *testing.T) {
	cfg := testConfig(t)
	store, err := directory.OpenFile(filepath.Join(t.TempDir(), "other.json"))
	require.NoError(t, err)

	a := newTestApp(t, cfg, WithDirectory(store))
	defer func() { require.NoError(t, a.Close()) }()
	assert.Same(t, store, a.Directory())
}

func TestOpenDirectoryDrivers(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t)
	d, err := OpenDirectory(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &directory.FileStore{}, d)
	require.NoError(t, d.Close())

	cfg.Storage.Driver = DriverSQLite
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "users.db")
	d, err = OpenDirectory(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &directory.SQLStore{}, d)
	require.NoError(t, d.Close())

	cfg.Storage.Driver = "redis"
	_, err = OpenDirectory(ctx, cfg)
	assert.Error(t, err)
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)
}

func TestInspectDirectorySkipsMigrations(t *testing.T) {
	ctx := context.Background()
	var calls []string
	stub := func(name string) func(context.Context, coredatabase.Config) (directory.Directory, error) {
		return func(context.Context, coredatabase.Config) (directory.Directory, error) {
			calls = append(calls, name)
			return directory.OpenFile(filepath.Join(t.TempDir(), name+".json"))
		}
	}
	prevOpen, prevConnect := openPostgres, connectPostgres
	openPostgres, connectPostgres = stub("migrate"), stub("connect")
	t.Cleanup(func() { openPostgres, connectPostgres = prevOpen, prevConnect })

	cfg := testConfig(t)
	cfg.Storage.Driver = DriverPostgres

	d, err := InspectDirectory(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, d.Close())
	assert.Equal(t, []string{"connect"}, calls)

	d, err = OpenDirectory(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, d.Close())
	assert.Equal(t, []string{"connect", "migrate"}, calls)

	cfg.Storage.Driver = DriverFile
	d, err = InspectDirectory(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &directory.FileStore{}, d)
	require.NoError(t, d.Close())
	assert.Len(t, calls, 2)
}

func TestNewStartsWithDefaultWiring(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	require.NotNil(t, a)
	assert.NotEmpty(t, a.routes)
	assert.NotEmpty(t, a.registry.ListCallbacks())
	require.NoError(t, a.Close())
}

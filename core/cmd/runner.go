// Package cmd runs a Telegram bot process: config, bootstrap, signals, shutdown.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	coreconfig "github.com/bingwamta/databot/core/config"
	"github.com/bingwamta/databot/core/logger"
	coretelegram "github.com/bingwamta/databot/core/telegram"
)

// DefaultConfigEnvVar names the variable holding the config file path.
const DefaultConfigEnvVar = "CONFIG_PATH"

// ConfigCarrier exposes the embedded core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp is a bootstrapped bot ready to run.
type TelegramApp interface {
	TelegramRunOptions(ctx context.Context) (coretelegram.RunOptions, error)
	Close() error
}

// Options describe how to load configuration, bootstrap the app and run it.
type Options struct {
	// ConfigPath wins over the environment variable. Both empty means
	// environment-only configuration.
	ConfigPath   string
	ConfigEnvVar string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(ctx context.Context, cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

// ResolveConfigPath returns explicit, else the value of envVar.
func ResolveConfigPath(explicit, envVar string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	if envVar == "" {
		envVar = DefaultConfigEnvVar
	}
	return strings.TrimSpace(os.Getenv(envVar))
}

// Run loads configuration, bootstraps the app and runs the bot until ctx is
// done or the process receives SIGINT/SIGTERM.
func Run(ctx context.Context, opts Options) (err error) {
	if opts.LoadConfig == nil {
		return errors.New("cmd: LoadConfig is required")
	}
	if opts.Bootstrap == nil {
		return errors.New("cmd: Bootstrap is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfgPath := ResolveConfigPath(opts.ConfigPath, opts.ConfigEnvVar)
	if cfgPath != "" {
		log.Printf("loading config: %s", cfgPath)
	}
	cfg, err := opts.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}
	if cfg.CoreConfig() == nil {
		return errors.New("cmd: loaded config is missing core configuration")
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startedAt := time.Now()
	application, err := opts.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			logger.Error(context.Background(), "app", "close.failed", logger.Err(cerr))
			err = errors.Join(err, cerr)
		}
		if serr := shutdownLogger(); serr != nil {
			log.Printf("logger shutdown error: %v", serr)
		}
	}()

	runOpts, err := application.TelegramRunOptions(ctx)
	if err != nil {
		return fmt.Errorf("cmd: telegram options build failed: %w", err)
	}

	prevStart := runOpts.OnStart
	runOpts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if prevStart != nil {
			if err := prevStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "app", "ready",
			slog.Duration("startup_duration", logger.Took(startedAt)),
		)
		return nil
	}
	prevStop := runOpts.OnStop
	runOpts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, "app", "shutdown")
		if prevStop != nil {
			return prevStop(ctx, rt)
		}
		return nil
	}

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return run(ctx, runOpts)
}

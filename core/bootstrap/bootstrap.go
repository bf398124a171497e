// Package bootstrap initialises shared infrastructure before a bot starts.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	coreconfig "github.com/bingwamta/databot/core/config"
	"github.com/bingwamta/databot/core/logger"
)

// Options control the bootstrap pipeline. S is the storage handle the bot
// runs against.
type Options[S io.Closer] struct {
	Config *coreconfig.Config
	// StorageName labels the storage in logs, e.g. "file" or "postgres".
	StorageName string

	LoggerInit  func(*coreconfig.Config) error
	OpenStorage func(ctx context.Context) (S, error)
}

// Run initialises the logger and opens storage.
func Run[S io.Closer](ctx context.Context, opts Options[S]) (S, error) {
	var zero S
	if opts.Config == nil {
		return zero, errors.New("bootstrap: nil config provided")
	}
	if opts.OpenStorage == nil {
		return zero, errors.New("bootstrap: OpenStorage is required")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return zero, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	start := time.Now()
	store, err := opts.OpenStorage(ctx)
	if err != nil {
		logger.Error(ctx, "app", "storage.failed",
			slog.String("driver", opts.StorageName),
			logger.Err(err),
		)
		return zero, fmt.Errorf("bootstrap: storage initialization failed: %w", err)
	}
	logger.Info(ctx, "app", "storage.ready",
		slog.String("driver", opts.StorageName),
		slog.Duration("duration", logger.Took(start)),
	)
	return store, nil
}

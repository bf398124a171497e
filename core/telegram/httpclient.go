package telegram

import (
	"net/http"
	"time"

	"github.com/bingwamta/databot/core/netutil"
)

const (
	telegramClientTimeout   = 75 * time.Second
	telegramResponseTimeout = 65 * time.Second // getUpdates holds the response open for the long-poll timeout
	telegramRetryAttempts   = 3
	telegramRetryBackoff    = 2 * time.Second
)

// BuildHTTPClient returns an HTTP client tuned for Telegram API calls.
// Transient dial and timeout failures are retried with linear backoff.
func BuildHTTPClient() *http.Client {
	return netutil.NewClient(netutil.ClientOptions{
		Timeout:         telegramClientTimeout,
		ResponseTimeout: telegramResponseTimeout,
		Retries:         telegramRetryAttempts,
		Backoff:         telegramRetryBackoff,
	})
}

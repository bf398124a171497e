package middleware

import (
	"log/slog"

	"github.com/bingwamta/databot/core/logger"
	tghelpers "github.com/bingwamta/databot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions configures the allow-list gate.
type AdminOptions struct {
	// IsAdmin reports whether a user id is on the allow-list. A nil func denies everyone.
	IsAdmin  func(userID int64) bool
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware lets only allow-listed senders reach next.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			userID, _ := tghelpers.Sender(c)
			if opts.IsAdmin != nil && opts.IsAdmin(userID) {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "access.denied",
				slog.Int64("user_id", userID),
			)
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}

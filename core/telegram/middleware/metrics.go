package middleware

import (
	"context"
	"sync/atomic"

	tghelpers "github.com/bingwamta/databot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "metrics"

type counters struct {
	messages atomic.Int32
	keyboard atomic.Bool
}

type countersCtxKey struct{}

// MessageMetricsMiddleware attaches per-update counters of outbound messages
// to the logging context. Senders report through CountSent.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		cnt := &counters{}
		c.Set(countersKey, cnt)
		ctx := tghelpers.BuildContext(c)
		tghelpers.StoreContext(c, context.WithValue(ctx, countersCtxKey{}, cnt))
		return next(c)
	}
}

// CountSent records one outbound message on the update counters carried by
// ctx. It is a no-op outside an update.
func CountSent(ctx context.Context, withKeyboard bool) {
	if ctx == nil {
		return
	}
	cnt, ok := ctx.Value(countersCtxKey{}).(*counters)
	if !ok {
		return
	}
	cnt.messages.Add(1)
	if withKeyboard {
		cnt.keyboard.Store(true)
	}
}

// GetCounters reports the messages sent while handling c and whether any
// carried a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	cnt, ok := c.Get(countersKey).(*counters)
	if !ok {
		return 0, false
	}
	return int(cnt.messages.Load()), cnt.keyboard.Load()
}

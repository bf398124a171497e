package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/bingwamta/databot/core/telegram/helpers"
)

func newBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return b
}

func message(b *tele.Bot, userID int64, text string) tele.Context {
	return b.NewContext(tele.Update{Message: &tele.Message{
		Sender: &tele.User{ID: userID},
		Chat:   &tele.Chat{ID: userID},
		Text:   text,
	}})
}

func callback(b *tele.Bot, userID int64, data string) tele.Context {
	return b.NewContext(tele.Update{Callback: &tele.Callback{
		Sender:  &tele.User{ID: userID},
		Data:    data,
		Message: &tele.Message{ID: 1, Chat: &tele.Chat{ID: userID}},
	}})
}

func TestAdminOnlyMiddleware(t *testing.T) {
	b := newBot(t)
	var passed, rejected int
	h := AdminOnlyMiddleware(AdminOptions{
		IsAdmin:  func(id int64) bool { return id == 1 },
		OnReject: func(tele.Context) error { rejected++; return nil },
	})(func(tele.Context) error { passed++; return nil })

	require.NoError(t, h(message(b, 1, "/admin")))
	require.NoError(t, h(message(b, 2, "/admin")))

	assert.Equal(t, 1, passed)
	assert.Equal(t, 1, rejected)
}

func TestAdminOnlyMiddlewareNilCheckDenies(t *testing.T) {
	b := newBot(t)
	called := false
	h := AdminOnlyMiddleware(AdminOptions{})(func(tele.Context) error { called = true; return nil })

	require.NoError(t, h(message(b, 1, "/admin")))
	assert.False(t, called)
}

func TestRateLimitMiddleware(t *testing.T) {
	b := newBot(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limited := 0
	calls := 0
	h := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
		Now:       func() time.Time { return now },
	})(func(tele.Context) error { calls++; return nil })

	require.NoError(t, h(message(b, 1, "a")))
	require.NoError(t, h(message(b, 1, "b")))
	require.NoError(t, h(message(b, 2, "c")))
	require.NoError(t, h(callback(b, 1, "data_1")))
	now = now.Add(time.Second)
	require.NoError(t, h(message(b, 1, "d")))

	assert.Equal(t, 4, calls)
	assert.Equal(t, 1, limited)
}

func TestMessageMetricsMiddleware(t *testing.T) {
	b := newBot(t)
	c := message(b, 1, "hi")

	err := LoggerMiddleware(MessageMetricsMiddleware(func(c tele.Context) error {
		ctx := tghelpers.WithHandler(c, "command.start")
		CountSent(ctx, false)
		CountSent(ctx, true)
		return nil
	}))(c)
	require.NoError(t, err)

	msgs, kb := GetCounters(c)
	assert.Equal(t, 2, msgs)
	assert.True(t, kb)
}

func TestCountSentOutsideUpdate(t *testing.T) {
	assert.NotPanics(t, func() { CountSent(t.Context(), true) })

	b := newBot(t)
	msgs, kb := GetCounters(message(b, 1, "x"))
	assert.Zero(t, msgs)
	assert.False(t, kb)
}

func TestLoggerMiddlewareSetsRID(t *testing.T) {
	b := newBot(t)
	c := message(b, 4, "hello")

	require.NoError(t, LoggerMiddleware(func(tele.Context) error { return nil })(c))

	rid, _ := c.Get("rid").(string)
	assert.NotEmpty(t, rid)
	_, ok := tghelpers.ContextFrom(c)
	assert.True(t, ok)
}

func TestRecoverMiddleware(t *testing.T) {
	b := newBot(t)
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })

	var err error
	assert.NotPanics(t, func() { err = h(message(b, 1, "x")) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

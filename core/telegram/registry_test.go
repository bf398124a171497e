package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegisterCommand(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.RegisterCommand("/start", Command{Handler: noop, Description: "Start"}))
	assert.Error(t, reg.RegisterCommand("/start", Command{Handler: noop, Description: "Again"}))
	assert.Error(t, reg.RegisterCommand("help", Command{Handler: noop, Description: "Help"}))
	assert.Error(t, reg.RegisterCommand("/about", Command{Description: "About"}))
	assert.Error(t, reg.RegisterCommand("/about", Command{Handler: noop}))

	assert.Len(t, reg.Commands(), 1)
}

func TestListCommandsHidesAdmin(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", Command{Handler: noop, Description: "Start"}))
	require.NoError(t, reg.RegisterCommand("/bundles", Command{Handler: noop, Description: "Bundles"}))
	require.NoError(t, reg.RegisterCommand("/admin", Command{Handler: noop, Description: "Admin", AdminOnly: true}))
	require.NoError(t, reg.RegisterCommand("/restart", Command{Handler: noop, Description: "Restart", Hidden: true}))

	visible := reg.ListCommands(true)
	require.Len(t, visible, 2)
	assert.Equal(t, tele.Command{Text: "bundles", Description: "Bundles"}, visible[0])
	assert.Equal(t, "start", visible[1].Text)

	assert.Len(t, reg.ListCommands(false), 4)
}

func TestLookupCommand(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/bundles", Command{Handler: noop, Description: "Bundles", Aliases: []string{"deals", "/offers"}}))

	for _, in := range []string{"/bundles", "bundles", "/BUNDLES", "/bundles@BingwaBot", "/bundles now", "/deals", "offers"} {
		key, _, ok := reg.LookupCommand(in)
		assert.True(t, ok, in)
		assert.Equal(t, "/bundles", key, in)
	}
	_, _, ok := reg.LookupCommand("/nope")
	assert.False(t, ok)
}

func TestCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("data_2", noop))
	require.NoError(t, reg.RegisterCallback("bingwa", noop))
	assert.Error(t, reg.RegisterCallback("data_2", noop))
	assert.Error(t, reg.RegisterCallback("", noop))

	_, ok := reg.Callback("data_2")
	assert.True(t, ok)
	_, ok = reg.Callback("data_9")
	assert.False(t, ok)
	assert.Equal(t, []string{"bingwa", "data_2"}, reg.ListCallbacks())

	assert.Nil(t, reg.CallbackNotFound())
	reg.SetCallbackNotFound(noop)
	assert.NotNil(t, reg.CallbackNotFound())
}

type recordingSetter struct {
	got []interface{}
}

func (r *recordingSetter) SetCommands(opts ...interface{}) error {
	r.got = opts
	return nil
}

func TestPublishCommands(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", Command{Handler: noop, Description: "Start"}))
	require.NoError(t, reg.RegisterCommand("/admin", Command{Handler: noop, Description: "Admin", AdminOnly: true}))
	setter := &recordingSetter{}

	require.NoError(t, PublishCommands(setter, reg))

	require.Len(t, setter.got, 1)
	assert.Equal(t, []tele.Command{{Text: "start", Description: "Start"}}, setter.got[0])
}

package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineRows(t *testing.T) {
	m := InlineRows(
		[]InlineBtn{{Text: "Yes", Data: "confirm"}, {Text: "No", Data: "cancel"}},
		nil,
		[]InlineBtn{{Text: "Help", Data: "support"}},
	)
	require.NotNil(t, m)
	require.Len(t, m.InlineKeyboard, 2)
	assert.Len(t, m.InlineKeyboard[0], 2)
	assert.Equal(t, "cancel", m.InlineKeyboard[0][1].Data)
	assert.Equal(t, "Help", m.InlineKeyboard[1][0].Text)
	assert.Empty(t, m.InlineKeyboard[1][0].Unique)
}

func TestInlineRowsEmpty(t *testing.T) {
	assert.Nil(t, InlineRows())
	assert.Nil(t, InlineRows(nil, []InlineBtn{}))
}

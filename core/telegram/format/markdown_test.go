package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMDEscapesLegacySpecials(t *testing.T) {
	assert.Equal(t, "john\\_doe \\*vip\\* \\[x] \\`code\\`", MD("john_doe *vip* [x] `code`"))
}

func TestMDLeavesPlainText(t *testing.T) {
	assert.Equal(t, "Amina Otieno (0712)", MD("Amina Otieno (0712)"))
}

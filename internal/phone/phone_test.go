package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEquivalentForms(t *testing.T) {
	forms := []string{
		"0712345678",
		"254712345678",
		"+254712345678",
		"712345678",
		"0712 345 678",
		"+254 (712) 345-678",
		"071.234.5678",
		" 0712345678 ",
	}
	for _, in := range forms {
		got, err := Normalize(in)
		require.NoError(t, err, in)
		assert.Equal(t, "254712345678", got, in)
	}
}

func TestNormalizeSafaricomOneRange(t *testing.T) {
	for _, in := range []string{"0112345678", "254112345678", "+254112345678", "112345678"} {
		got, err := Normalize(in)
		require.NoError(t, err, in)
		assert.Equal(t, "254112345678", got, in)
	}
}

func TestNormalizeRejects(t *testing.T) {
	bad := []string{
		"",
		"abc123",
		"0812345678",
		"071234567",
		"07123456789",
		"+255712345678",
		"25471234567",
		"00712345678",
		"+0712345678",
		"0712a45678",
		"612345678",
	}
	for _, in := range bad {
		_, err := Normalize(in)
		assert.ErrorIs(t, err, ErrInvalidPhoneNumber, in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	first, err := Normalize("0798765432")
	require.NoError(t, err)
	second, err := Normalize(first)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// Package phone validates Kenyan mobile numbers.
package phone

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidPhoneNumber is returned for input that is not a Kenyan mobile number.
var ErrInvalidPhoneNumber = errors.New("phone: invalid Kenyan mobile number")

// CountryCode is the canonical prefix of normalised numbers.
const CountryCode = "254"

var (
	separators = strings.NewReplacer(" ", "", "\t", "", "\n", "", "\r", "", "-", "", "(", "", ")", "", ".", "")
	mobile     = regexp.MustCompile(`^(?:\+254|254|0)?([17][0-9]{8})$`)
)

// Normalize canonicalises input into 254XXXXXXXXX. Accepted shapes are
// 07XXXXXXXX, 01XXXXXXXX, 2547XXXXXXXX, +2547XXXXXXXX and the bare nine
// subscriber digits, with spaces, dashes, dots and parentheses ignored.
func Normalize(input string) (string, error) {
	cleaned := separators.Replace(strings.TrimSpace(input))
	m := mobile.FindStringSubmatch(cleaned)
	if m == nil {
		return "", ErrInvalidPhoneNumber
	}
	return CountryCode + m[1], nil
}

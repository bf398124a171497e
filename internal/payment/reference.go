package payment

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReferencePrefix starts every external reference.
const ReferencePrefix = "BINGWA"

const referenceRandLen = 12

// NewReference returns BINGWA-YYYYMMDDhhmmss-XXXXXXXXXXXX, where the tail is
// taken from a random v4 UUID.
func NewReference(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return ReferencePrefix + "-" + now.Format("20060102150405") + "-" + id[:referenceRandLen]
}

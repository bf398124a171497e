// Package callbacks decodes inline button payloads.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Parse splits callback data into a routing key and an optional payload.
// Buttons built with a telebot unique id arrive as "\f<unique>|<payload>";
// plain buttons carry their id verbatim and have no payload.
func Parse(cb *tele.Callback) (key, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := cb.Data
	if !strings.HasPrefix(raw, "\f") {
		return strings.TrimSpace(raw), ""
	}
	key, payload, _ = strings.Cut(strings.TrimPrefix(raw, "\f"), "|")
	return strings.TrimSpace(key), payload
}

// Key returns the routing key of the callback carried by c.
func Key(c tele.Context) string {
	key, _ := Parse(c.Callback())
	return key
}

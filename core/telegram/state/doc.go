// Package state keeps per-conversation sessions in memory for Telegram bots.
//
// Sessions are keyed by (user, chat). Access goes through Store.With, which
// serialises transitions on the same key while different keys proceed in
// parallel. Sessions idle for longer than the configured TTL are reset on
// the next access and dropped by the periodic sweeper.
package state

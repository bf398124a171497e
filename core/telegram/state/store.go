package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bingwamta/databot/core/logger"
)

// Key identifies a conversation: one user in one chat.
type Key struct {
	UserID int64
	ChatID int64
}

// DefaultTTL is the idle timeout applied when Options.TTL is zero.
const DefaultTTL = 180 * time.Second

// Options configure a Store.
type Options[T any] struct {
	// Name labels log lines emitted by the store.
	Name string
	// TTL is the idle period after which a session is reset.
	TTL time.Duration
	// New builds the zero session for a key. Nil means the zero value of T.
	New func(Key) T
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

type entry[T any] struct {
	mu       sync.Mutex
	data     T
	lastSeen time.Time
}

// Store is a concurrency-safe in-memory session store.
type Store[T any] struct {
	name    string
	ttl     time.Duration
	newFn   func(Key) T
	now     func() time.Time
	mu      sync.Mutex
	entries map[Key]*entry[T]
}

// NewStore constructs an empty store.
func NewStore[T any](opts Options[T]) *Store[T] {
	s := &Store[T]{
		name:    opts.Name,
		ttl:     opts.TTL,
		newFn:   opts.New,
		now:     opts.Now,
		entries: make(map[Key]*entry[T]),
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.name == "" {
		s.name = "session"
	}
	return s
}

func (s *Store[T]) fresh(key Key) T {
	if s.newFn != nil {
		return s.newFn(key)
	}
	var zero T
	return zero
}

// acquire returns the locked entry for key, creating it when absent.
func (s *Store[T]) acquire(key Key) *entry[T] {
	for {
		s.mu.Lock()
		e, ok := s.entries[key]
		if !ok {
			e = &entry[T]{data: s.fresh(key), lastSeen: s.now()}
			s.entries[key] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		s.mu.Lock()
		current := s.entries[key] == e
		s.mu.Unlock()
		if current {
			return e
		}
		// swept between lookup and lock
		e.mu.Unlock()
	}
}

// With runs fn with exclusive access to the session for key. A session idle
// past the TTL is reset before fn sees it. The activity timestamp is refreshed
// after fn returns.
func (s *Store[T]) With(key Key, fn func(*T) error) error {
	e := s.acquire(key)
	defer e.mu.Unlock()

	now := s.now()
	if now.Sub(e.lastSeen) > s.ttl {
		e.data = s.fresh(key)
		logger.Debug(context.Background(), s.name, "session.expired",
			slog.Int64("user_id", key.UserID),
			slog.Int64("chat_id", key.ChatID),
		)
	}
	err := fn(&e.data)
	e.lastSeen = s.now()
	return err
}

// Peek returns a copy of the session for key without creating one.
// Expired sessions are reported as absent.
func (s *Store[T]) Peek(key Key) (T, bool) {
	s.mu.Lock()
	e, ok := s.entries[key]
	s.mu.Unlock()
	if !ok {
		var zero T
		return zero, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if s.now().Sub(e.lastSeen) > s.ttl {
		var zero T
		return zero, false
	}
	return e.data, true
}

// Delete forgets the session for key. Callers holding the session inside With
// may call Delete; the in-flight copy is simply discarded.
func (s *Store[T]) Delete(key Key) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Len reports the number of tracked sessions, expired ones included.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes sessions idle past the TTL and returns how many were dropped.
// Sessions currently held by With are skipped.
func (s *Store[T]) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.entries, key)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Store[T]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.ttl / 3
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				logger.Debug(ctx, s.name, "session.sweep",
					slog.Int("count", n),
					slog.Int("total", s.Len()),
				)
			}
		}
	}
}

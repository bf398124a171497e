// Package chattest provides an in-memory chat.Messenger for tests.
package chattest

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/bingwamta/databot/internal/chat"
)

// ErrBlocked is returned for chats listed in Recorder.Fail.
var ErrBlocked = errors.New("chattest: chat blocked")

// Sent is one recorded outbound message.
type Sent struct {
	Handle  chat.Handle
	Message chat.Message
}

// Edited is one recorded edit.
type Edited struct {
	Handle  chat.Handle
	Message chat.Message
}

// Recorder records every Messenger call.
type Recorder struct {
	mu      sync.Mutex
	seq     int
	sent    []Sent
	edits   []Edited
	deletes []chat.Handle
	calls   map[int64]int

	// Fail lists chat ids whose sends return ErrBlocked.
	Fail map[int64]bool
}

// New returns an empty recorder.
func New() *Recorder {
	return &Recorder{calls: make(map[int64]int)}
}

// Send implements chat.Messenger.
func (r *Recorder) Send(_ context.Context, chatID int64, msg chat.Message) (chat.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[int64]int)
	}
	r.calls[chatID]++
	if r.Fail[chatID] {
		return chat.Handle{}, ErrBlocked
	}
	r.seq++
	h := chat.Handle{ChatID: chatID, MessageID: strconv.Itoa(r.seq)}
	r.sent = append(r.sent, Sent{Handle: h, Message: msg})
	return h, nil
}

// Edit implements chat.Messenger.
func (r *Recorder) Edit(_ context.Context, h chat.Handle, msg chat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edits = append(r.edits, Edited{Handle: h, Message: msg})
	return nil
}

// Delete implements chat.Messenger.
func (r *Recorder) Delete(_ context.Context, h chat.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes = append(r.deletes, h)
	return nil
}

// Sent returns a copy of the recorded sends.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// SentTo returns sends addressed to chatID.
func (r *Recorder) SentTo(chatID int64) []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Sent
	for _, s := range r.sent {
		if s.Handle.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

// Last returns the most recent send.
func (r *Recorder) Last() (Sent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Sent{}, false
	}
	return r.sent[len(r.sent)-1], true
}

// Edits returns a copy of the recorded edits.
func (r *Recorder) Edits() []Edited {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Edited(nil), r.edits...)
}

// Deletes returns a copy of the recorded deletes.
func (r *Recorder) Deletes() []chat.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]chat.Handle(nil), r.deletes...)
}

// Attempts reports how many sends were attempted to chatID.
func (r *Recorder) Attempts(chatID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[chatID]
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent, r.edits, r.deletes = nil, nil, nil
	r.calls = make(map[int64]int)
}

// Buttons flattens the button ids of msg.
func Buttons(msg chat.Message) []string {
	var ids []string
	for _, row := range msg.Buttons {
		for _, b := range row {
			ids = append(ids, b.Data)
		}
	}
	return ids
}

package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/bingwamta/databot/core/logger"
)

// FileStore keeps the directory in a single JSON document that is rewritten
// through a temp file and rename after every change.
type FileStore struct {
	path string
	now  func() time.Time

	mu    sync.Mutex
	users []Profile
	index map[int64]int
}

// FileOption customises a FileStore.
type FileOption func(*FileStore)

// WithClock overrides the clock used for joined/last-active timestamps.
func WithClock(now func() time.Time) FileOption {
	return func(s *FileStore) {
		if now != nil {
			s.now = now
		}
	}
}

// OpenFile loads path, treating a missing file as an empty directory.
func OpenFile(path string, opts ...FileOption) (*FileStore, error) {
	s := &FileStore{path: path, now: time.Now, index: make(map[int64]int)}
	for _, opt := range opts {
		opt(s)
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read users file: %w", err)
	}
	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse users file %s: %w", path, err)
	}
	for _, rec := range doc.Users {
		p, err := rec.profile()
		if err != nil {
			logger.Warn(context.Background(), component, "file.skip",
				slog.String("path", path),
				logger.Err(err),
			)
			continue
		}
		if _, dup := s.index[p.ID]; dup {
			continue
		}
		s.index[p.ID] = len(s.users)
		s.users = append(s.users, p)
	}
	logger.Info(context.Background(), component, "file.open",
		slog.String("path", path),
		slog.Int("count", len(s.users)),
	)
	return s, nil
}

// Upsert implements Directory.
func (s *FileStore) Upsert(ctx context.Context, id Identity) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	i, ok := s.index[id.ID]
	var prev Profile
	if ok {
		prev = s.users[i]
		s.users[i].Username = id.Username
		s.users[i].FirstName = id.FirstName
		s.users[i].LastName = id.LastName
		s.users[i].LastActiveAt = now
	} else {
		i = len(s.users)
		s.index[id.ID] = i
		s.users = append(s.users, Profile{
			ID:           id.ID,
			Username:     id.Username,
			FirstName:    id.FirstName,
			LastName:     id.LastName,
			JoinedAt:     now,
			LastActiveAt: now,
		})
	}
	p := s.users[i]

	if err := s.persist(); err != nil {
		if ok {
			s.users[i] = prev
		} else {
			s.users = s.users[:i]
			delete(s.index, id.ID)
		}
		return Profile{}, err
	}
	return p, nil
}

// Get implements Directory.
func (s *FileStore) Get(_ context.Context, userID int64) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return s.users[i], nil
}

// List implements Directory. Profiles come back in registration order.
func (s *FileStore) List(context.Context) ([]Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Profile(nil), s.users...), nil
}

// Count implements Directory.
func (s *FileStore) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), nil
}

// Stats implements Directory.
func (s *FileStore) Stats(_ context.Context, now time.Time) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{Total: len(s.users)}
	activeSince := now.Add(-activeWindow)
	joinedSince := now.Add(-joinedWindow)
	for _, p := range s.users {
		if !p.LastActiveAt.Before(activeSince) {
			st.ActiveLastDay++
		}
		if !p.JoinedAt.Before(joinedSince) {
			st.JoinedLastWeek++
		}
	}
	return st, nil
}

// Close implements Directory.
func (s *FileStore) Close() error { return nil }

// persist rewrites the whole document. Callers hold s.mu.
func (s *FileStore) persist() error {
	doc := fileDoc{Users: make([]fileRecord, 0, len(s.users))}
	for _, p := range s.users {
		doc.Users = append(doc.Users, recordOf(p))
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create users dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp users file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write users file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync users file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close users file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace users file: %w", err)
	}
	return nil
}

type fileDoc struct {
	Users []fileRecord `json:"users"`
}

// fileRecord is the on-disk shape: ids are decimal strings.
type fileRecord struct {
	ID         string    `json:"id"`
	Username   *string   `json:"username"`
	FirstName  *string   `json:"first_name"`
	LastName   *string   `json:"last_name"`
	Joined     timestamp `json:"joined"`
	LastActive timestamp `json:"last_active"`
}

func recordOf(p Profile) fileRecord {
	return fileRecord{
		ID:         strconv.FormatInt(p.ID, 10),
		Username:   optional(p.Username),
		FirstName:  optional(p.FirstName),
		LastName:   optional(p.LastName),
		Joined:     timestamp(p.JoinedAt),
		LastActive: timestamp(p.LastActiveAt),
	}
}

func (r fileRecord) profile() (Profile, error) {
	id, err := strconv.ParseInt(r.ID, 10, 64)
	if err != nil {
		return Profile{}, fmt.Errorf("bad user id %q: %w", r.ID, err)
	}
	return Profile{
		ID:           id,
		Username:     deref(r.Username),
		FirstName:    deref(r.FirstName),
		LastName:     deref(r.LastName),
		JoinedAt:     time.Time(r.Joined),
		LastActiveAt: time.Time(r.LastActive),
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// timestamp encodes as RFC 3339 and also accepts the zone-less ISO form
// written by earlier versions of the users file.
type timestamp time.Time

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339Nano))
}

func (t *timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*t = timestamp{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			*t = timestamp(v.UTC())
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

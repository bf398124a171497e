// Package directory records every user who has talked to the bot.
package directory

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned by Get for unknown user ids.
var ErrNotFound = errors.New("directory: user not found")

const component = "directory"

// Profile is the stored record of one user.
type Profile struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	JoinedAt     time.Time
	LastActiveAt time.Time
}

// DisplayName joins the first and last name, falling back to @username and
// finally to the numeric id.
func (p Profile) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	if name != "" {
		return name
	}
	if u := strings.TrimSpace(p.Username); u != "" {
		return "@" + u
	}
	return strconv.FormatInt(p.ID, 10)
}

// Identity is what a user reveals about themselves on each visit.
type Identity struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// Stats summarises directory activity.
type Stats struct {
	Total          int
	ActiveLastDay  int
	JoinedLastWeek int
}

const (
	activeWindow = 24 * time.Hour
	joinedWindow = 7 * 24 * time.Hour
)

// Directory is a user registry. Upsert creates the profile on first sight and
// afterwards only refreshes the names and the activity timestamp.
type Directory interface {
	Upsert(ctx context.Context, id Identity) (Profile, error)
	Get(ctx context.Context, userID int64) (Profile, error)
	List(ctx context.Context) ([]Profile, error)
	Count(ctx context.Context) (int, error)
	Stats(ctx context.Context, now time.Time) (Stats, error)
	Close() error
}

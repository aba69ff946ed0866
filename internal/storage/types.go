package storage

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

type Config struct {
	Enabled     bool
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Announcement records one confirmed build post. This is an audit trail for
// operators; the observer never reads it back to rebuild its ledger.
type Announcement struct {
	At       time.Time
	Device   string
	BuildTS  time.Time
	Version  string
	Filename string
	Size     int64
}

// Store is the persistence API used by the observer and the admin commands.
type Store interface {
	AppendAnnouncement(ctx context.Context, a Announcement) error
	RecentAnnouncements(ctx context.Context, limit int) ([]Announcement, error)
	Close() error
}

package domain

import (
	"time"
)

// Session describes one client connection.
type Session struct {
	ID          string
	Remote      string
	ConnectedAt time.Time
}

func NewSession(id, remote string) Session {
	return Session{
		ID:          id,
		Remote:      remote,
		ConnectedAt: time.Now(),
	}
}

func (s Session) IsValid() bool {
	return s.ID != ""
}

func (s Session) String() string {
	return s.ID + "@" + s.Remote
}

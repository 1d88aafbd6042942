package entity

import "time"

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an authenticated GoTrue session.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// ExpiresWithin reports whether the access token lapses inside d.
func (s *Session) ExpiresWithin(d time.Duration, now time.Time) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return s.ExpiresAt.Sub(now) <= d
}

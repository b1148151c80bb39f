package models

import "time"

type Session struct {
	Email       string
	AccessToken string
	ExpiresAt   time.Time
	FirstLogin  bool
	Verified    bool
}

func (s *Session) Expired(now time.Time) bool {
	return s == nil || s.AccessToken == "" || (!s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt))
}

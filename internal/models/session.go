package models

import "time"

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionPayload is the get-session response body and the value the gate caches.
type SessionPayload struct {
	Session Session `json:"session"`
	User    User    `json:"user"`
}

func (p *SessionPayload) Expired(now time.Time) bool {
	return p != nil && !p.Session.ExpiresAt.IsZero() && !now.Before(p.Session.ExpiresAt)
}

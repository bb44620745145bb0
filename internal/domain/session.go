package domain

import "time"

// Session is a pending OAuth authorization, keyed by its CSRF state nonce.
// Sessions are short-lived and stored with a TTL.
type Session struct {
	Shop      string    `json:"shop"`
	State     string    `json:"state"`
	Scopes    []string  `json:"scopes"`
	CreatedAt time.Time `json:"created_at"`
}

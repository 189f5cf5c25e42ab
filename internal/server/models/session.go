package models

import "time"

// Session represents one login instance. Its lifetime is independent of the
// refresh token created in the same login transaction.
type Session struct {
	ID        string
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}

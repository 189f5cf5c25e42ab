package models

import "time"

// RefreshToken is a long-lived opaque credential used to mint new access
// tokens. A user may hold many at once (one per device).
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}

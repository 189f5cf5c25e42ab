package events

import (
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// UserCreated mirrors the identity service's user.created payload. Either
// Password (plaintext, to be encoded locally) or HashedPassword (pre-encoded
// upstream, stored as-is) must be present.
type UserCreated struct {
	Email          string      `json:"email"`
	UserName       string      `json:"username,omitempty"`
	Password       string      `json:"password,omitempty"`
	HashedPassword string      `json:"hashedPassword,omitempty"`
	Role           models.Role `json:"role,omitempty"`
	IsActive       *bool       `json:"isActive,omitempty"`
	CreatedAt      time.Time   `json:"createdAt,omitempty"`
}

// UserProfileUpdated signals that upstream-owned profile fields changed.
// This service does not replicate them; it only records that they did.
type UserProfileUpdated struct {
	UserID    string `json:"userId"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

type UserDeactivated struct {
	UserID string `json:"userId"`
}

type UserReactivated struct {
	UserID string `json:"userId"`
}

type UserRegistered struct {
	Timestamp time.Time   `json:"timestamp"`
	UserID    string      `json:"userId"`
	Email     string      `json:"email"`
	UserName  string      `json:"username"`
	Role      models.Role `json:"role"`
}

type UserLoggedIn struct {
	Timestamp    time.Time `json:"timestamp"`
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	SessionToken string    `json:"sessionToken"`
}

type TokenRefreshed struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId"`
}

type UserLoggedOut struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId,omitempty"`
}

type UserLoggedOutAll struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId"`
}

type UserPasswordChanged struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId"`
}

type SessionsCleanedUp struct {
	Timestamp       time.Time `json:"timestamp"`
	ExpiredSessions int64     `json:"expiredSessions"`
	ExpiredTokens   int64     `json:"expiredTokens"`
}

type StatisticsGenerated struct {
	Timestamp time.Time        `json:"timestamp"`
	Stats     models.AuthStats `json:"stats"`
}

type PasswordExpiryWarning struct {
	Timestamp   time.Time `json:"timestamp"`
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	PasswordAge string    `json:"passwordAge"`
}

type UserStatusSync struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"isActive"`
}

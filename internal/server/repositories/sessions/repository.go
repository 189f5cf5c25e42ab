// Package sessions declares the repository contract for login sessions.
// Sessions behave like refresh tokens at the storage level but carry an
// independent, usually shorter, lifetime.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository defines operations for creating, retrieving, and revoking
// login sessions.
type Repository interface {
	// Create stores a new session for userID with an expiry of now+validity.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Find looks up a session by its opaque token string. Implementations
	// return common.ErrorNotFound when the session is absent.
	Find(ctx context.Context, token string) (*models.Session, error)

	// Delete removes a session by its token string. Deleting a non-existent
	// session is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteAllForUser bulk-revokes every session the user holds and returns
	// the number of rows removed.
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpired purges rows whose expiry is before the cutoff and
	// returns the number of rows removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)

	// CountLive returns the number of rows that are still valid at now.
	CountLive(ctx context.Context, now time.Time) (int64, error)
}

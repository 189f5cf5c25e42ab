// Package refreshtokens declares the repository contract for managing
// refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking
// refresh tokens.
type Repository interface {
	// Create stores a new refresh token for userID with an expiry of
	// now+validity.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Find looks up a refresh token by its opaque token string.
	// Implementations return common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token by its token string. Deleting a
	// non-existent token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteAllForUser bulk-revokes every refresh token the user holds and
	// returns the number of rows removed.
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpired purges rows whose expiry is before the cutoff and
	// returns the number of rows removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)

	// CountLive returns the number of rows that are still valid at now.
	CountLive(ctx context.Context, now time.Time) (int64, error)
}

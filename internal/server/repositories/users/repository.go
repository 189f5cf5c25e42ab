// Package users declares the repository contract for the local user replica.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository defines operations over locally replicated user records.
// Implementations should return common.ErrorNotFound when a lookup misses
// and common.ErrorConflict when a unique constraint is violated on Create.
type Repository interface {
	// Create inserts a new user row and returns it with store-assigned
	// timestamps filled in.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// UpsertByEmail inserts the user or, when a row with the same email
	// already exists, overwrites the replicated fields. Replaying the same
	// payload converges to the same row.
	UpsertByEmail(ctx context.Context, user *models.User) (*models.User, error)

	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByLogin matches either email or username.
	GetByLogin(ctx context.Context, login string) (*models.User, error)

	// SetActive flips the active flag unconditionally, so replays converge.
	SetActive(ctx context.Context, id string, active bool) error

	// UpdatePassword stores a new password hash and bumps updated_at.
	UpdatePassword(ctx context.Context, id string, passwordHash string) error

	// TouchUpdatedAt bumps updated_at without changing replicated fields.
	TouchUpdatedAt(ctx context.Context, id string) error

	// Counts returns the total and active user counts.
	Counts(ctx context.Context) (total int64, active int64, err error)

	// ListUpdatedBefore returns users whose row has not changed since the
	// cutoff; the housekeeper uses it to warn about aging passwords.
	ListUpdatedBefore(ctx context.Context, cutoff time.Time) ([]models.User, error)
}

package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/credential"
	"github.com/dmitrijs2005/authkeeper/internal/server/events"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

// Reconciler applies identity-service lifecycle events to the local user
// replica and cascades dependent cleanup.
//
// Delivery is at-least-once and unordered, so every handler is an idempotent
// state transition keyed by a natural identifier (email or user id):
// replaying any event converges to the same state. An event for a user the
// replica has never seen is logged and dropped, since the corresponding
// user.created may simply not have arrived yet.
type Reconciler struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	publisher   events.Publisher
	logger      logging.Logger
}

func NewReconciler(db *sql.DB, m repomanager.RepositoryManager, p events.Publisher, l logging.Logger) *Reconciler {
	return &Reconciler{
		db:          db,
		repomanager: m,
		publisher:   p,
		logger:      l.With("module", "reconciler"),
	}
}

// Handlers returns the topic dispatch table for the event consumer.
func (r *Reconciler) Handlers() map[string]events.Handler {
	return map[string]events.Handler{
		events.TopicUserCreated:        decode(r.HandleUserCreated),
		events.TopicUserProfileUpdated: decode(r.HandleUserProfileUpdated),
		events.TopicUserDeactivated:    decode(r.HandleUserDeactivated),
		events.TopicUserReactivated:    decode(r.HandleUserReactivated),
	}
}

// decode adapts a typed handler to the raw events.Handler signature.
func decode[T any](fn func(ctx context.Context, payload T) error) events.Handler {
	return func(ctx context.Context, raw []byte) error {
		var payload T
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("%w: %v", common.ErrEventPayload, err)
		}
		return fn(ctx, payload)
	}
}

// HandleUserCreated upserts a local user from the event. A pre-hashed
// credential is stored exactly as received: re-encoding an already-hashed
// value would lock the user out. A plaintext credential is encoded with the
// adaptive algorithm. Neither being present is an unprocessable payload.
func (r *Reconciler) HandleUserCreated(ctx context.Context, p events.UserCreated) error {
	email := strings.TrimSpace(p.Email)
	if email == "" {
		return fmt.Errorf("%w: user.created without email", common.ErrEventPayload)
	}

	var hash string
	switch {
	case p.HashedPassword != "":
		hash = p.HashedPassword
	case p.Password != "":
		h, err := credential.Hash(p.Password)
		if err != nil {
			return fmt.Errorf("encoding replicated password: %w", err)
		}
		hash = h
	default:
		return fmt.Errorf("%w: user.created without password or hashedPassword", common.ErrEventPayload)
	}

	username := strings.TrimSpace(p.UserName)
	if username == "" {
		// No username travels with the event. The full email is the only
		// fallback that cannot collide with another synthesized username
		// under the unique constraint (a@x.com and a@y.com share a local
		// part but never a full address).
		username = email
	}

	role := p.Role
	if role == "" {
		role = models.RoleUser
	}

	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}

	user, err := r.repomanager.Users(r.db).UpsertByEmail(ctx, &models.User{
		Email:        email,
		UserName:     username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     active,
	})
	if err != nil {
		return fmt.Errorf("upserting replicated user: %w", err)
	}

	r.logger.Info(ctx, "user replicated", "user_id", user.ID, "email", user.Email)
	return nil
}

// HandleUserProfileUpdated records that upstream-owned profile fields
// changed. The replica does not hold those fields, so only the update
// timestamp moves.
func (r *Reconciler) HandleUserProfileUpdated(ctx context.Context, p events.UserProfileUpdated) error {
	if p.UserID == "" {
		return fmt.Errorf("%w: user.profileUpdated without userId", common.ErrEventPayload)
	}

	err := r.repomanager.Users(r.db).TouchUpdatedAt(ctx, p.UserID)
	if errors.Is(err, common.ErrorNotFound) {
		r.logger.Warn(ctx, "profile update for unknown user", "user_id", p.UserID)
		return nil
	}
	return err
}

// HandleUserDeactivated flags the user inactive and revokes all of their
// sessions and refresh tokens. Replays converge: the flag set is
// unconditional and the bulk deletes are naturally idempotent.
func (r *Reconciler) HandleUserDeactivated(ctx context.Context, p events.UserDeactivated) error {
	if p.UserID == "" {
		return fmt.Errorf("%w: user.deactivated without userId", common.ErrEventPayload)
	}

	user, err := r.repomanager.Users(r.db).GetByID(ctx, p.UserID)
	if errors.Is(err, common.ErrorNotFound) {
		r.logger.Warn(ctx, "deactivation for unknown user", "user_id", p.UserID)
		return nil
	}
	if err != nil {
		return err
	}

	if err := r.repomanager.Users(r.db).SetActive(ctx, p.UserID, false); err != nil {
		return err
	}

	// Two independent bulk deletes; a failure here still leaves the account
	// flagged inactive, and redelivery or the sweep finishes the cleanup.
	sessions, tokens, err := purgeUserTokens(ctx, r.db, r.repomanager, p.UserID)
	if err != nil {
		return fmt.Errorf("revoking tokens of deactivated user %s: %w", p.UserID, err)
	}

	r.logger.Info(ctx, "user deactivated", "user_id", p.UserID,
		"revoked_sessions", sessions, "revoked_tokens", tokens)

	r.publishStatusSync(ctx, user, false)
	return nil
}

// HandleUserReactivated flags the user active again. Tokens revoked during
// deactivation stay revoked; the user has to log in anew.
func (r *Reconciler) HandleUserReactivated(ctx context.Context, p events.UserReactivated) error {
	if p.UserID == "" {
		return fmt.Errorf("%w: user.reactivated without userId", common.ErrEventPayload)
	}

	user, err := r.repomanager.Users(r.db).GetByID(ctx, p.UserID)
	if errors.Is(err, common.ErrorNotFound) {
		r.logger.Warn(ctx, "reactivation for unknown user", "user_id", p.UserID)
		return nil
	}
	if err != nil {
		return err
	}

	if err := r.repomanager.Users(r.db).SetActive(ctx, p.UserID, true); err != nil {
		return err
	}

	r.logger.Info(ctx, "user reactivated", "user_id", p.UserID)

	r.publishStatusSync(ctx, user, true)
	return nil
}

func (r *Reconciler) publishStatusSync(ctx context.Context, user *models.User, active bool) {
	err := r.publisher.Publish(ctx, events.TopicUserStatusSync, events.UserStatusSync{
		Timestamp: time.Now().UTC(),
		UserID:    user.ID,
		Email:     user.Email,
		IsActive:  active,
	})
	if err != nil {
		r.logger.Error(ctx, "status sync publish failed", "user_id", user.ID, "error", err.Error())
	}
}

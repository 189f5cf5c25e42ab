package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/events"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

// Housekeeper implements the periodic maintenance operations. It owns no
// timers itself; the scheduler invokes each operation on its cadence. All
// operations are commutative bulk reads/deletes and are safe to run
// concurrently with request traffic and with each other.
type Housekeeper struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	publisher      events.Publisher
	logger         logging.Logger
	passwordMaxAge time.Duration
}

func NewHousekeeper(db *sql.DB, m repomanager.RepositoryManager, p events.Publisher, l logging.Logger, cfg *config.Config) *Housekeeper {
	return &Housekeeper{
		db:             db,
		repomanager:    m,
		publisher:      p,
		logger:         l.With("module", "housekeeper"),
		passwordMaxAge: cfg.PasswordMaxAge,
	}
}

// CleanupExpired deletes every session and refresh token whose expiry lies
// in the past, then publishes one summary event with the counts. A failure
// on one table does not stop the sweep of the other.
func (h *Housekeeper) CleanupExpired(ctx context.Context) error {
	now := time.Now()

	expiredSessions, sessErr := h.repomanager.Sessions(h.db).DeleteExpired(ctx, now)
	expiredTokens, tokErr := h.repomanager.RefreshTokens(h.db).DeleteExpired(ctx, now)

	if err := errors.Join(sessErr, tokErr); err != nil {
		return fmt.Errorf("expiry sweep: %w", err)
	}

	h.logger.Info(ctx, "expiry sweep finished",
		"expired_sessions", expiredSessions, "expired_tokens", expiredTokens)

	return h.publisher.Publish(ctx, events.TopicSessionsCleanedUp, events.SessionsCleanedUp{
		Timestamp:       now.UTC(),
		ExpiredSessions: expiredSessions,
		ExpiredTokens:   expiredTokens,
	})
}

// GenerateStatistics computes a read-only snapshot of user and token counts
// and publishes it. Nothing is mutated.
func (h *Housekeeper) GenerateStatistics(ctx context.Context) error {
	now := time.Now()

	total, active, err := h.repomanager.Users(h.db).Counts(ctx)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}

	activeSessions, err := h.repomanager.Sessions(h.db).CountLive(ctx, now)
	if err != nil {
		return fmt.Errorf("counting sessions: %w", err)
	}

	activeTokens, err := h.repomanager.RefreshTokens(h.db).CountLive(ctx, now)
	if err != nil {
		return fmt.Errorf("counting refresh tokens: %w", err)
	}

	stats := models.AuthStats{
		TotalUsers:     total,
		ActiveUsers:    active,
		InactiveUsers:  total - active,
		ActiveSessions: activeSessions,
		ActiveTokens:   activeTokens,
	}

	h.logger.Info(ctx, "statistics snapshot", "total_users", total, "active_users", active,
		"active_sessions", activeSessions, "active_tokens", activeTokens)

	return h.publisher.Publish(ctx, events.TopicStatisticsGenerated, events.StatisticsGenerated{
		Timestamp: now.UTC(),
		Stats:     stats,
	})
}

// CheckPasswordExpiry warns users whose credential has not changed for
// longer than the configured age. The row's updated_at doubles as the
// password change marker, since every password write bumps it.
func (h *Housekeeper) CheckPasswordExpiry(ctx context.Context) error {
	if h.passwordMaxAge <= 0 {
		return nil
	}

	now := time.Now()
	cutoff := now.Add(-h.passwordMaxAge)

	aging, err := h.repomanager.Users(h.db).ListUpdatedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("listing aging passwords: %w", err)
	}

	for _, user := range aging {
		err := h.publisher.Publish(ctx, events.TopicPasswordExpiryWarning, events.PasswordExpiryWarning{
			Timestamp:   now.UTC(),
			UserID:      user.ID,
			Email:       user.Email,
			PasswordAge: now.Sub(user.UpdatedAt).Round(time.Hour).String(),
		})
		if err != nil {
			h.logger.Error(ctx, "expiry warning publish failed", "user_id", user.ID, "error", err.Error())
		}
	}

	if len(aging) > 0 {
		h.logger.Info(ctx, "password expiry warnings sent", "count", len(aging))
	}

	return nil
}

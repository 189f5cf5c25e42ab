// Package services contains the server-side business logic of the credential
// and session authority. This file implements AuthService: registration,
// login, token refresh, logout, and password changes.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/credential"
	"github.com/dmitrijs2005/authkeeper/internal/server/events"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
)

const minPasswordLength = 8

// AuthResult bundles everything a successful register/login returns. The
// session token is only set on login; registration does not open a session.
type AuthResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
	SessionToken string
}

// AuthService provides the synchronous request surface:
//   - Register / Login: verify credentials and mint tokens
//   - Refresh: mint new access tokens from a stored refresh token
//   - Logout / LogoutAll: revoke stored tokens
//   - ChangePassword: re-encode the credential and revoke everything
//   - Authenticate: validate a bearer access token
type AuthService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	publisher                    events.Publisher
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	sessionValidityDuration      time.Duration
}

// NewAuthService constructs an AuthService using repositories, the event
// publisher, and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, p events.Publisher, l logging.Logger, cfg *config.Config) *AuthService {
	return &AuthService{
		db:                           db,
		repomanager:                  m,
		publisher:                    p,
		logger:                       l.With("module", "auth_service"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		sessionValidityDuration:      cfg.SessionValidityDuration,
	}
}

// Register creates a local user with an adaptive-hashed password and issues
// an access/refresh token pair. The user.registered event is published so
// the upstream identity service learns about locally originated accounts;
// without it the replica would diverge permanently.
func (s *AuthService) Register(ctx context.Context, email, username, password string, role models.Role) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)
	if email == "" || username == "" {
		return nil, common.ErrorValidation
	}
	if len(password) < minPasswordLength {
		return nil, common.ErrorValidation
	}
	if role == "" {
		role = models.RoleUser
	}

	hash, err := credential.Hash(password)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err.Error())
		return nil, common.ErrorInternal
	}

	var result *AuthResult
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).Create(ctx, &models.User{
			Email:        email,
			UserName:     username,
			PasswordHash: hash,
			Role:         role,
			IsActive:     true,
		})
		if err != nil {
			return err
		}

		access, refresh, err := s.issueTokenPair(ctx, tx, user)
		if err != nil {
			return err
		}

		result = &AuthResult{User: user, AccessToken: access, RefreshToken: refresh}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		s.logger.Error(ctx, "registration failed", "error", err.Error())
		return nil, common.ErrorInternal
	}

	s.publish(ctx, events.TopicUserRegistered, events.UserRegistered{
		Timestamp: time.Now().UTC(),
		UserID:    result.User.ID,
		Email:     result.User.Email,
		UserName:  result.User.UserName,
		Role:      result.User.Role,
	})

	return result, nil
}

// Login verifies the password of the user identified by email or username
// and opens a new session. A missing user and a wrong password produce the
// same outcome so callers cannot enumerate accounts.
func (s *AuthService) Login(ctx context.Context, login, password string) (*AuthResult, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, common.ErrorValidation
	}

	user, err := s.repomanager.Users(s.db).GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "user lookup failed", "error", err.Error())
		return nil, common.ErrorInternal
	}

	if !credential.Verify(password, user.PasswordHash) {
		return nil, common.ErrorUnauthorized
	}

	if !user.IsActive {
		return nil, common.ErrorForbidden
	}

	var result *AuthResult
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		access, refresh, err := s.issueTokenPair(ctx, tx, user)
		if err != nil {
			return err
		}

		session, err := common.MakeRandHexString(32)
		if err != nil {
			return err
		}
		if err := s.repomanager.Sessions(tx).Create(ctx, user.ID, session, s.sessionValidityDuration); err != nil {
			return err
		}

		result = &AuthResult{User: user, AccessToken: access, RefreshToken: refresh, SessionToken: session}
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "login failed", "error", err.Error())
		return nil, common.ErrorInternal
	}

	s.publish(ctx, events.TopicUserLoggedIn, events.UserLoggedIn{
		Timestamp:    time.Now().UTC(),
		UserID:       user.ID,
		Email:        user.Email,
		SessionToken: result.SessionToken,
	})

	return result, nil
}

// Refresh mints a new access token for the owner of refreshToken. The
// owner's email and role are re-read at refresh time so upstream changes
// propagate into new access tokens without a full re-login. The refresh
// token itself stays valid until its own expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", common.ErrorValidation
	}

	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "refresh token lookup failed", "error", err.Error())
		return "", common.ErrorInternal
	}

	if token.Expires.Before(time.Now()) {
		// Dead row; remove it now rather than waiting for the sweep.
		if err := repo.Delete(ctx, refreshToken); err != nil {
			s.logger.Warn(ctx, "expired refresh token cleanup failed", "error", err.Error())
		}
		return "", common.ErrRefreshTokenExpired
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "token owner lookup failed", "error", err.Error())
		return "", common.ErrorInternal
	}

	if !user.IsActive {
		return "", common.ErrorForbidden
	}

	access, err := auth.GenerateToken(user.ID, user.Email, user.Role, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		s.logger.Error(ctx, "access token generation failed", "error", err.Error())
		return "", common.ErrorInternal
	}

	s.publish(ctx, events.TopicTokenRefreshed, events.TokenRefreshed{
		Timestamp: time.Now().UTC(),
		UserID:    user.ID,
	})

	return access, nil
}

// Logout deletes the given session and/or refresh token. Either may be
// empty, but not both. Deleting rows that are already gone is a no-op.
func (s *AuthService) Logout(ctx context.Context, refreshToken, sessionToken string) error {
	if refreshToken == "" && sessionToken == "" {
		return common.ErrorValidation
	}

	var userID string

	if sessionToken != "" {
		repo := s.repomanager.Sessions(s.db)
		if session, err := repo.Find(ctx, sessionToken); err == nil {
			userID = session.UserID
		}
		if err := repo.Delete(ctx, sessionToken); err != nil {
			s.logger.Error(ctx, "session delete failed", "error", err.Error())
			return common.ErrorInternal
		}
	}

	if refreshToken != "" {
		repo := s.repomanager.RefreshTokens(s.db)
		if userID == "" {
			if token, err := repo.Find(ctx, refreshToken); err == nil {
				userID = token.UserID
			}
		}
		if err := repo.Delete(ctx, refreshToken); err != nil {
			s.logger.Error(ctx, "refresh token delete failed", "error", err.Error())
			return common.ErrorInternal
		}
	}

	s.publish(ctx, events.TopicUserLoggedOut, events.UserLoggedOut{
		Timestamp: time.Now().UTC(),
		UserID:    userID,
	})

	return nil
}

// LogoutAll revokes every session and refresh token the user holds. The two
// bulk deletes are independent: if the second fails after the first
// succeeded, the first is not rolled back; both are idempotent and the next
// call or the housekeeper sweep converges the state.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	if userID == "" {
		return common.ErrorValidation
	}

	if _, _, err := purgeUserTokens(ctx, s.db, s.repomanager, userID); err != nil {
		s.logger.Error(ctx, "logout-all purge failed", "user_id", userID, "error", err.Error())
		return common.ErrorInternal
	}

	s.publish(ctx, events.TopicUserLoggedOutAll, events.UserLoggedOutAll{
		Timestamp: time.Now().UTC(),
		UserID:    userID,
	})

	return nil
}

// Me returns the local replica of the authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, common.ErrorValidation
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.logger.Error(ctx, "user lookup failed", "error", err.Error())
		return nil, common.ErrorInternal
	}

	return user, nil
}

// ChangePassword verifies the current password, stores the new one in
// adaptive form, and revokes every session and refresh token of the user so
// stolen tokens die with the old password.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if userID == "" || currentPassword == "" {
		return common.ErrorValidation
	}
	if len(newPassword) < minPasswordLength {
		return common.ErrorValidation
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "user lookup failed", "error", err.Error())
		return common.ErrorInternal
	}

	if !credential.Verify(currentPassword, user.PasswordHash) {
		return common.ErrorUnauthorized
	}

	hash, err := credential.Hash(newPassword)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err.Error())
		return common.ErrorInternal
	}

	if err := s.repomanager.Users(s.db).UpdatePassword(ctx, userID, hash); err != nil {
		s.logger.Error(ctx, "password update failed", "error", err.Error())
		return common.ErrorInternal
	}

	// The password changed; revocation failures are reported but the new
	// password stays in place.
	if _, _, err := purgeUserTokens(ctx, s.db, s.repomanager, userID); err != nil {
		s.logger.Error(ctx, "post-change token purge failed", "user_id", userID, "error", err.Error())
		return common.ErrorInternal
	}

	s.publish(ctx, events.TopicUserPasswordChanged, events.UserPasswordChanged{
		Timestamp: time.Now().UTC(),
		UserID:    userID,
	})

	return nil
}

// Authenticate validates a bearer access token and returns its claims.
// A missing token and an invalid token are distinct outcomes; beyond that,
// all failure modes look the same to the caller.
func (s *AuthService) Authenticate(tokenString string) (*auth.Claims, error) {
	if tokenString == "" {
		return nil, common.ErrorTokenRequired
	}

	claims, err := auth.ParseToken(tokenString, s.jwtSecret)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// issueTokenPair mints an access token and creates a stored refresh token
// within the given handle (typically a transaction).
func (s *AuthService) issueTokenPair(ctx context.Context, tx dbx.DBTX, user *models.User) (string, string, error) {
	access, err := auth.GenerateToken(user.ID, user.Email, user.Role, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", "", err
	}

	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return "", "", err
	}

	if err := s.repomanager.RefreshTokens(tx).Create(ctx, user.ID, refresh, s.refreshTokenValidityDuration); err != nil {
		return "", "", err
	}

	return access, refresh, nil
}

// publish sends an outbound event. State has already changed by the time we
// get here, so a transport failure is logged, not surfaced to the caller.
func (s *AuthService) publish(ctx context.Context, topic string, payload any) {
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		s.logger.Error(ctx, "event publish failed", "topic", topic, "error", err.Error())
	}
}

// purgeUserTokens issues the two independent bulk deletes that revoke all of
// a user's sessions and refresh tokens. The pair is deliberately not one
// transaction; a crash between the two leaves a window that the next sweep
// closes. Counts reflect whatever completed.
func purgeUserTokens(ctx context.Context, db *sql.DB, m repomanager.RepositoryManager, userID string) (sessions int64, tokens int64, err error) {
	sessions, err = m.Sessions(db).DeleteAllForUser(ctx, userID)
	if err != nil {
		return sessions, 0, err
	}
	tokens, err = m.RefreshTokens(db).DeleteAllForUser(ctx, userID)
	return sessions, tokens, err
}

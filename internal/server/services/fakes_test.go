package services

import (
	"context"
	"database/sql"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	refreshtokensrepo "github.com/dmitrijs2005/authkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	sessionsrepo "github.com/dmitrijs2005/authkeeper/internal/server/repositories/sessions"
	usersrepo "github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func newTestLogger() logging.Logger {
	return logging.NewJSONLogger(io.Discard)
}

type publishedEvent struct {
	topic   string
	payload any
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *capturePublisher) Publish(ctx context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{topic: topic, payload: payload})
	return nil
}

func (p *capturePublisher) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

func (p *capturePublisher) topics() []string {
	var out []string
	for _, e := range p.published() {
		out = append(out, e.topic)
	}
	return out
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error
	createIn  *models.User

	upsertOut *models.User
	upsertErr error
	upsertIn  []*models.User

	getByIDOut *models.User
	getByIDErr error

	getByLoginOut *models.User
	getByLoginErr error

	setActiveIn  []struct {
		id     string
		active bool
	}
	setActiveErr error

	updatePasswordID   string
	updatePasswordHash string
	updatePasswordErr  error

	touchedIDs []string
	touchErr   error

	countsTotal  int64
	countsActive int64
	countsErr    error

	listOut []models.User
	listErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.createIn = u
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOut, nil
}

func (f *fakeUsersRepo) UpsertByEmail(ctx context.Context, u *models.User) (*models.User, error) {
	f.upsertIn = append(f.upsertIn, u)
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if f.upsertOut != nil {
		return f.upsertOut, nil
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	return f.getByIDOut, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.getByLoginErr != nil {
		return nil, f.getByLoginErr
	}
	return f.getByLoginOut, nil
}

func (f *fakeUsersRepo) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	if f.getByLoginErr != nil {
		return nil, f.getByLoginErr
	}
	return f.getByLoginOut, nil
}

func (f *fakeUsersRepo) SetActive(ctx context.Context, id string, active bool) error {
	f.setActiveIn = append(f.setActiveIn, struct {
		id     string
		active bool
	}{id, active})
	return f.setActiveErr
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	f.updatePasswordID = id
	f.updatePasswordHash = passwordHash
	return f.updatePasswordErr
}

func (f *fakeUsersRepo) TouchUpdatedAt(ctx context.Context, id string) error {
	f.touchedIDs = append(f.touchedIDs, id)
	return f.touchErr
}

func (f *fakeUsersRepo) Counts(ctx context.Context) (int64, int64, error) {
	return f.countsTotal, f.countsActive, f.countsErr
}

func (f *fakeUsersRepo) ListUpdatedBefore(ctx context.Context, cutoff time.Time) ([]models.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listOut, nil
}

// fakeTokenStore backs both the sessions and refresh-token fakes; the two
// contracts are identical at this level.
type fakeTokenStore struct {
	createUserID   string
	createToken    string
	createValidity time.Duration
	createErr      error

	findSession *models.Session
	findToken   *models.RefreshToken
	findErr     error

	deleted   []string
	deleteErr error

	deleteAllUserID string
	deleteAllN      int64
	deleteAllErr    error

	deleteExpiredN   int64
	deleteExpiredErr error

	countLiveN   int64
	countLiveErr error
}

func (f *fakeTokenStore) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	f.createUserID = userID
	f.createToken = token
	f.createValidity = validity
	return f.createErr
}

func (f *fakeTokenStore) Delete(ctx context.Context, token string) error {
	f.deleted = append(f.deleted, token)
	return f.deleteErr
}

func (f *fakeTokenStore) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	f.deleteAllUserID = userID
	return f.deleteAllN, f.deleteAllErr
}

func (f *fakeTokenStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return f.deleteExpiredN, f.deleteExpiredErr
}

func (f *fakeTokenStore) CountLive(ctx context.Context, now time.Time) (int64, error) {
	return f.countLiveN, f.countLiveErr
}

type fakeSessionsRepo struct{ fakeTokenStore }

func (f *fakeSessionsRepo) Find(ctx context.Context, token string) (*models.Session, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findSession, nil
}

type fakeRefreshRepo struct{ fakeTokenStore }

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findToken, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	s *fakeSessionsRepo
	r *fakeRefreshRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u: &fakeUsersRepo{},
		s: &fakeSessionsRepo{},
		r: &fakeRefreshRepo{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) Sessions(db dbx.DBTX) sessionsrepo.Repository           { return m.s }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }

var _ repomanager.RepositoryManager = (*fakeRepoManager)(nil)

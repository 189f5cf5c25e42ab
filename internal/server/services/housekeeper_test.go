package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/events"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

func newHousekeeper(t *testing.T, rm *fakeRepoManager, pub *capturePublisher, maxAge time.Duration) *Housekeeper {
	t.Helper()
	db, _ := newSQLMockDB(t)
	t.Cleanup(func() { db.Close() })
	cfg := &config.Config{PasswordMaxAge: maxAge}
	return NewHousekeeper(db, rm, pub, newTestLogger(), cfg)
}

func TestCleanupExpired(t *testing.T) {
	rm := newFakeRepoManager()
	rm.s.deleteExpiredN = 3
	rm.r.deleteExpiredN = 5
	pub := &capturePublisher{}
	h := newHousekeeper(t, rm, pub, 0)

	if err := h.CleanupExpired(context.Background()); err != nil {
		t.Fatalf("CleanupExpired error: %v", err)
	}

	evts := pub.published()
	if len(evts) != 1 || evts[0].topic != events.TopicSessionsCleanedUp {
		t.Fatalf("published = %v", pub.topics())
	}
	p := evts[0].payload.(events.SessionsCleanedUp)
	if p.ExpiredSessions != 3 || p.ExpiredTokens != 5 {
		t.Errorf("summary = %+v", p)
	}
}

func TestCleanupExpired_PartialFailure(t *testing.T) {
	rm := newFakeRepoManager()
	rm.s.deleteExpiredErr = fmt.Errorf("sessions table locked")
	rm.r.deleteExpiredN = 5
	pub := &capturePublisher{}
	h := newHousekeeper(t, rm, pub, 0)

	err := h.CleanupExpired(context.Background())
	if !errors.Is(err, rm.s.deleteExpiredErr) {
		t.Fatalf("expected the sweep error to surface, got %v", err)
	}
	// no summary event on a failed sweep
	if len(pub.published()) != 0 {
		t.Errorf("published = %v", pub.topics())
	}
}

func TestGenerateStatistics(t *testing.T) {
	rm := newFakeRepoManager()
	rm.u.countsTotal = 10
	rm.u.countsActive = 7
	rm.s.countLiveN = 4
	rm.r.countLiveN = 6
	pub := &capturePublisher{}
	h := newHousekeeper(t, rm, pub, 0)

	if err := h.GenerateStatistics(context.Background()); err != nil {
		t.Fatalf("GenerateStatistics error: %v", err)
	}

	evts := pub.published()
	if len(evts) != 1 || evts[0].topic != events.TopicStatisticsGenerated {
		t.Fatalf("published = %v", pub.topics())
	}
	got := evts[0].payload.(events.StatisticsGenerated).Stats
	want := models.AuthStats{TotalUsers: 10, ActiveUsers: 7, InactiveUsers: 3, ActiveSessions: 4, ActiveTokens: 6}
	if got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
}

func TestCheckPasswordExpiry(t *testing.T) {
	old := time.Now().Add(-100 * 24 * time.Hour)
	rm := newFakeRepoManager()
	rm.u.listOut = []models.User{
		{ID: "u1", Email: "a@example.com", UpdatedAt: old},
		{ID: "u2", Email: "b@example.com", UpdatedAt: old},
	}
	pub := &capturePublisher{}
	h := newHousekeeper(t, rm, pub, 90*24*time.Hour)

	if err := h.CheckPasswordExpiry(context.Background()); err != nil {
		t.Fatalf("CheckPasswordExpiry error: %v", err)
	}

	evts := pub.published()
	if len(evts) != 2 {
		t.Fatalf("published = %v", pub.topics())
	}
	for _, e := range evts {
		if e.topic != events.TopicPasswordExpiryWarning {
			t.Errorf("topic = %s", e.topic)
		}
	}
	if p := evts[0].payload.(events.PasswordExpiryWarning); p.UserID != "u1" || p.PasswordAge == "" {
		t.Errorf("warning = %+v", p)
	}
}

func TestCheckPasswordExpiry_Disabled(t *testing.T) {
	rm := newFakeRepoManager()
	rm.u.listOut = []models.User{{ID: "u1", UpdatedAt: time.Now().Add(-time.Hour)}}
	pub := &capturePublisher{}
	h := newHousekeeper(t, rm, pub, 0)

	if err := h.CheckPasswordExpiry(context.Background()); err != nil {
		t.Fatalf("CheckPasswordExpiry error: %v", err)
	}
	if len(pub.published()) != 0 {
		t.Errorf("a zero max age disables the check")
	}
}

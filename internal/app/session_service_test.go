package app_test

import (
	"context"
	"sync"
	"testing"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

func TestCreateSessionStartsWaiting(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fix := newFixture(t, store)
	sessions, _, _ := newServices(store)

	session, err := sessions.CreateSession(ctx, fix.quizID, fix.hostID, "AB12")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.Status != domain.StatusWaiting {
		t.Fatalf("expected waiting status, got %q", session.Status)
	}
	if session.StartedAt != nil || session.FinishedAt != nil {
		t.Fatalf("expected no timestamps on a new session, got %+v", session)
	}

	got, err := sessions.GetSessionByJoinCode(ctx, "AB12")
	if err != nil {
		t.Fatalf("get by join code: %v", err)
	}
	if got.ID != session.ID {
		t.Fatalf("expected session %d, got %d", session.ID, got.ID)
	}
}

func TestCreateSessionGeneratesJoinCode(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fix := newFixture(t, store)
	sessions, _, _ := newServices(store)

	session, err := sessions.CreateSession(ctx, fix.quizID, fix.hostID, "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(session.JoinCode) != 6 {
		t.Fatalf("expected 6-character generated join code, got %q", session.JoinCode)
	}
}

func TestConcurrentSessionCreationWithGeneratedCodes(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fix := newFixture(t, store)
	sessions, _, _ := newServices(store)

	const n = 8
	var wg sync.WaitGroup
	results := make(chan domain.Session, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := sessions.CreateSession(ctx, fix.quizID, fix.hostID, "")
			if err != nil {
				errs <- err
				return
			}
			results <- session
		}()
	}
	wg.Wait()
	close(results)
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent create: %v", err)
	}

	codes := make(map[string]bool, n)
	for session := range results {
		if len(session.JoinCode) != 6 {
			t.Fatalf("expected 6-character code, got %q", session.JoinCode)
		}
		codes[session.JoinCode] = true
	}
	if len(codes) != n {
		t.Fatalf("expected %d distinct join codes, got %d", n, len(codes))
	}
}

// collidingSessionStore fails the first conflicts inserts with a join-code
// conflict, then delegates.
type collidingSessionStore struct {
	app.SessionStore
	conflicts int
	calls     int
}

func (s *collidingSessionStore) CreateSession(ctx context.Context, session *domain.Session) error {
	s.calls++
	if s.calls <= s.conflicts {
		return &domain.ConflictError{Reason: "join code is already in use"}
	}
	return s.SessionStore.CreateSession(ctx, session)
}

func TestGeneratedJoinCodeRetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fix := newFixture(t, store)

	colliding := &collidingSessionStore{SessionStore: store, conflicts: 2}
	sessions := app.NewSessionService(colliding)

	session, err := sessions.CreateSession(ctx, fix.quizID, fix.hostID, "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if colliding.calls != 3 {
		t.Fatalf("expected 2 retries before success, got %d calls", colliding.calls)
	}
	if len(session.JoinCode) != 6 {
		t.Fatalf("expected generated code, got %q", session.JoinCode)
	}
}

func TestSuppliedJoinCodeIsNotRetried(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fix := newFixture(t, store)

	colliding := &collidingSessionStore{SessionStore: store, conflicts: 1}
	sessions := app.NewSessionService(colliding)

	_, err := sessions.CreateSession(ctx, fix.quizID, fix.hostID, "TAKEN1")
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict for a caller-supplied code, got %v", err)
	}
	if colliding.calls != 1 {
		t.Fatalf("caller-supplied code must not retry, got %d calls", colliding.calls)
	}
}

func TestCreateSessionDuplicateJoinCodeConflicts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fix := newFixture(t, store)
	sessions, _, _ := newServices(store)

	if _, err := sessions.CreateSession(ctx, fix.quizID, fix.hostID, "SAME01"); err != nil {
		t.Fatalf("create session: %v", err)
	}
	_, err := sessions.CreateSession(ctx, fix.quizID, fix.hostID, "SAME01")
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict for duplicate join code, got %v", err)
	}
}

func TestUpdateStatusStampsTimestamps(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fix := newFixture(t, store)
	sessions, _, _ := newServices(store)

	session, err := sessions.CreateSession(ctx, fix.quizID, fix.hostID, "GAME01")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if err := sessions.UpdateStatus(ctx, session.ID, domain.StatusInProgress); err != nil {
		t.Fatalf("start session: %v", err)
	}
	got, _ := sessions.GetSession(ctx, session.ID)
	if got.Status != domain.StatusInProgress {
		t.Fatalf("expected in_progress, got %q", got.Status)
	}
	if got.StartedAt == nil {
		t.Fatalf("expected started_at to be stamped")
	}
	if got.FinishedAt != nil {
		t.Fatalf("finished_at must stay unset until the session finishes")
	}

	if err := sessions.UpdateStatus(ctx, session.ID, domain.StatusFinished); err != nil {
		t.Fatalf("finish session: %v", err)
	}
	got, _ = sessions.GetSession(ctx, session.ID)
	if got.FinishedAt == nil {
		t.Fatalf("expected finished_at to be stamped")
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fix := newFixture(t, store)
	sessions, _, _ := newServices(store)

	session, err := sessions.CreateSession(ctx, fix.quizID, fix.hostID, "GAME02")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	err = sessions.UpdateStatus(ctx, session.ID, "paused")
	if !domain.IsInvalidInput(err) {
		t.Fatalf("expected invalid input for unknown status, got %v", err)
	}

	// Unknown session is a different failure than an unknown status.
	err = sessions.UpdateStatus(ctx, session.ID+1000, domain.StatusFinished)
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found for unknown session, got %v", err)
	}
}

func TestFinishedIsTerminal(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	fix := newFixture(t, store)
	sessions, _, _ := newServices(store)

	session, err := sessions.CreateSession(ctx, fix.quizID, fix.hostID, "GAME03")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := sessions.UpdateStatus(ctx, session.ID, domain.StatusFinished); err != nil {
		t.Fatalf("finish session: %v", err)
	}

	err = sessions.UpdateStatus(ctx, session.ID, domain.StatusInProgress)
	if !domain.IsInvalidInput(err) {
		t.Fatalf("expected invalid input leaving finished, got %v", err)
	}
}

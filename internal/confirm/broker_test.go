/*-------------------------------------------------------------------------
 *
 * broker_test.go
 *    Tests for the confirmation broker
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 *-------------------------------------------------------------------------
 */

package confirm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/casetrace/CaseTrace/internal/db"
)

/* fakeConfirmStore is an in-memory confirmation store. orphans stands
 * in for rows left pending by a previous process. */
type fakeConfirmStore struct {
	mu          sync.Mutex
	created     int
	resolved    map[uuid.UUID]string
	orphans     int64
	sweepReason string
}

func newFakeConfirmStore(orphans int64) *fakeConfirmStore {
	return &fakeConfirmStore{resolved: make(map[uuid.UUID]string), orphans: orphans}
}

func (s *fakeConfirmStore) CreateConfirmation(_ context.Context, _ *db.ConfirmationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created++
	return nil
}

func (s *fakeConfirmStore) ResolveConfirmation(_ context.Context, id uuid.UUID, status, _ string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.resolved[id]; done {
		return false, nil
	}
	s.resolved[id] = status
	return true, nil
}

func (s *fakeConfirmStore) RejectPendingByCase(_ context.Context, _ uuid.UUID, reason string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepReason = reason
	return s.orphans, nil
}

func TestResolveDeliversDecision(t *testing.T) {
	b := NewBroker(nil, nil, time.Minute)
	ctx := context.Background()
	caseID := uuid.New()

	req, decisionCh, err := b.Register(ctx, caseID, uuid.New(), "freeze account 4411")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if ok := b.Resolve(ctx, req.ID, false, "insufficient evidence"); !ok {
		t.Fatal("resolve returned false for a pending request")
	}

	select {
	case d := <-decisionCh:
		if d.Approved {
			t.Error("decision approved, want rejected")
		}
		if d.Reason != "insufficient evidence" {
			t.Errorf("decision reason = %q", d.Reason)
		}
	case <-time.After(time.Second):
		t.Fatal("no decision delivered")
	}
}

func TestResolveIdempotent(t *testing.T) {
	b := NewBroker(nil, nil, time.Minute)
	ctx := context.Background()

	req, decisionCh, err := b.Register(ctx, uuid.New(), uuid.New(), "delete original media")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if ok := b.Resolve(ctx, req.ID, true, "verified"); !ok {
		t.Fatal("first resolve returned false")
	}
	if ok := b.Resolve(ctx, req.ID, false, "changed my mind"); ok {
		t.Fatal("second resolve returned true, want idempotent false")
	}

	/* The stored decision is the first one */
	d := <-decisionCh
	if !d.Approved || d.Reason != "verified" {
		t.Errorf("decision = %+v, want first resolution", d)
	}
}

func TestResolveUnknownID(t *testing.T) {
	b := NewBroker(nil, nil, time.Minute)
	if ok := b.Resolve(context.Background(), uuid.New(), true, ""); ok {
		t.Error("resolve of unknown id returned true")
	}
}

func TestConcurrentResolveSingleWinner(t *testing.T) {
	b := NewBroker(nil, nil, time.Minute)
	ctx := context.Background()

	req, decisionCh, err := b.Register(ctx, uuid.New(), uuid.New(), "contact subject")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	const racers = 16
	var wg sync.WaitGroup
	wins := make(chan bool, racers)
	for i := 0; i < racers; i++ {
		approved := i%2 == 0
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Resolve(ctx, req.ID, approved, "race") {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for range wins {
		winners++
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}

	select {
	case <-decisionCh:
	default:
		t.Error("no decision delivered despite a winning resolve")
	}
}

func TestListPendingScopedToCase(t *testing.T) {
	b := NewBroker(nil, nil, time.Minute)
	ctx := context.Background()
	caseA := uuid.New()
	caseB := uuid.New()

	r1, _, _ := b.Register(ctx, caseA, uuid.New(), "first")
	r2, _, _ := b.Register(ctx, caseA, uuid.New(), "second")
	b.Register(ctx, caseB, uuid.New(), "other case")

	pending := b.ListPending(caseA)
	if len(pending) != 2 {
		t.Fatalf("pending count = %d, want 2", len(pending))
	}
	if !pending[0].CreatedAt.Before(pending[1].CreatedAt) && pending[0].ID != r1.ID {
		t.Error("pending requests not ordered oldest first")
	}

	b.Resolve(ctx, r1.ID, true, "")
	b.Resolve(ctx, r2.ID, true, "")
	if remaining := b.ListPending(caseA); len(remaining) != 0 {
		t.Errorf("pending after resolution = %d, want 0", len(remaining))
	}
}

func TestForceRejectCase(t *testing.T) {
	b := NewBroker(nil, nil, time.Minute)
	ctx := context.Background()
	caseID := uuid.New()

	_, ch1, _ := b.Register(ctx, caseID, uuid.New(), "a")
	_, ch2, _ := b.Register(ctx, caseID, uuid.New(), "b")
	other, _, _ := b.Register(ctx, uuid.New(), uuid.New(), "c")

	n := b.ForceRejectCase(ctx, caseID, "workflow cancelled")
	if n != 2 {
		t.Errorf("force rejected = %d, want 2", n)
	}

	for _, ch := range []<-chan Decision{ch1, ch2} {
		select {
		case d := <-ch:
			if d.Approved {
				t.Error("force-rejected request delivered approval")
			}
		case <-time.After(time.Second):
			t.Fatal("no decision delivered to suspended task")
		}
	}

	/* The other case's request is untouched */
	if got := b.ListPending(other.CaseID); len(got) != 1 {
		t.Errorf("other case pending = %d, want 1", len(got))
	}
}

func TestConfirmResumesOnResolution(t *testing.T) {
	b := NewBroker(nil, nil, time.Minute)
	ctx := context.Background()
	caseID := uuid.New()

	type outcome struct {
		approved bool
		reason   string
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		approved, reason, err := b.Confirm(ctx, caseID, uuid.New(), "seize device")
		done <- outcome{approved, reason, err}
	}()

	/* Wait for the request to appear, then reject it */
	var req *Request
	for i := 0; i < 100; i++ {
		if pending := b.ListPending(caseID); len(pending) == 1 {
			req = pending[0]
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if req == nil {
		t.Fatal("request never registered")
	}
	b.Resolve(ctx, req.ID, false, "insufficient evidence")

	select {
	case o := <-done:
		if o.err != nil {
			t.Fatalf("confirm returned error: %v", o.err)
		}
		if o.approved {
			t.Error("confirm approved, want rejected")
		}
		if o.reason != "insufficient evidence" {
			t.Errorf("reason = %q", o.reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("confirm did not resume after resolution")
	}
}

func TestConfirmTimeoutAutoRejects(t *testing.T) {
	b := NewBroker(nil, nil, 50*time.Millisecond)
	ctx := context.Background()
	caseID := uuid.New()

	approved, reason, err := b.Confirm(ctx, caseID, uuid.New(), "never answered")
	if err != nil {
		t.Fatalf("confirm returned error: %v", err)
	}
	if approved {
		t.Error("timed-out confirmation approved")
	}
	if reason == "" {
		t.Error("timed-out confirmation has no reason")
	}
	if pending := b.ListPending(caseID); len(pending) != 0 {
		t.Errorf("pending after timeout = %d, want 0", len(pending))
	}
}

/* A decision that wins the resolve CAS right as the timeout fires must
 * still reach the suspended task. */
func TestConfirmTimeoutRaceKeepsWinningDecision(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		b := NewBroker(nil, nil, time.Millisecond)
		caseID := uuid.New()

		humanWon := make(chan bool, 1)
		go func() {
			deadline := time.After(200 * time.Millisecond)
			for {
				select {
				case <-deadline:
					humanWon <- false
					return
				default:
				}
				if pending := b.ListPending(caseID); len(pending) == 1 {
					humanWon <- b.Resolve(ctx, pending[0].ID, true, "approved under deadline")
					return
				}
			}
		}()

		approved, reason, err := b.Confirm(ctx, caseID, uuid.New(), "contested action")
		if err != nil {
			t.Fatalf("iteration %d: confirm returned error: %v", i, err)
		}
		if won := <-humanWon; won && !approved {
			t.Fatalf("iteration %d: winning approval dropped, reason = %q", i, reason)
		} else if !won && approved {
			t.Fatalf("iteration %d: approval without a winning resolve", i)
		}
	}
}

func TestForceRejectCaseSweepsStore(t *testing.T) {
	store := newFakeConfirmStore(2)
	b := NewBroker(store, nil, time.Minute)
	ctx := context.Background()
	caseID := uuid.New()

	req, ch, err := b.Register(ctx, caseID, uuid.New(), "publish preliminary report")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	n := b.ForceRejectCase(ctx, caseID, "workflow cancelled")
	if n != 3 {
		t.Errorf("rejected = %d, want 1 in-memory + 2 orphaned", n)
	}

	select {
	case d := <-ch:
		if d.Approved {
			t.Error("force-rejected request delivered approval")
		}
	case <-time.After(time.Second):
		t.Fatal("no decision delivered to suspended task")
	}

	if store.resolved[req.ID] != db.ConfirmationRejected {
		t.Errorf("in-memory request persisted as %q, want rejected", store.resolved[req.ID])
	}
	if store.sweepReason != "workflow cancelled" {
		t.Errorf("sweep reason = %q", store.sweepReason)
	}
}

func TestConfirmCancelledContext(t *testing.T) {
	b := NewBroker(nil, nil, time.Minute)
	caseID := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := b.Confirm(ctx, caseID, uuid.New(), "cancelled midway")
		done <- err
	}()

	for i := 0; i < 100; i++ {
		if len(b.ListPending(caseID)) == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("confirm returned nil error after cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("confirm did not return after cancellation")
	}

	if pending := b.ListPending(caseID); len(pending) != 0 {
		t.Errorf("pending after cancellation = %d, want 0", len(pending))
	}
}

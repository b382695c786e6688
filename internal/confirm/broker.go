/*-------------------------------------------------------------------------
 *
 * broker.go
 *    Human confirmation broker for CaseTrace
 *
 * A running domain task registers a pending request and suspends on
 * its decision channel. An external actor resolves the request over
 * the API. Each request owns an atomic state word, so concurrent
 * resolves race on a per-request CAS rather than a broker-wide lock.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/confirm/broker.go
 *
 *-------------------------------------------------------------------------
 */

package confirm

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/casetrace/CaseTrace/internal/db"
	"github.com/casetrace/CaseTrace/internal/metrics"
)

const (
	statePending int32 = iota
	stateResolved
)

/* DefaultTimeout bounds how long a task waits for a human decision
 * before the request auto-rejects. */
const DefaultTimeout = 30 * time.Minute

/* Decision is the outcome delivered to the suspended task */
type Decision struct {
	Approved bool
	Reason   string
}

/* Request is one pending confirmation */
type Request struct {
	ID                uuid.UUID
	CaseID            uuid.UUID
	WorkflowID        uuid.UUID
	ActionDescription string
	CreatedAt         time.Time

	state    atomic.Int32
	decision chan Decision
}

/* Store persists confirmation requests alongside the in-memory map.
 * Nil-safe: a broker without a store is purely in-memory. */
type Store interface {
	CreateConfirmation(ctx context.Context, r *db.ConfirmationRequest) error
	ResolveConfirmation(ctx context.Context, id uuid.UUID, status, reason string) (bool, error)
	RejectPendingByCase(ctx context.Context, caseID uuid.UUID, reason string) (int64, error)
}

/* Publisher announces confirmation lifecycle to case observers */
type Publisher interface {
	Publish(caseID uuid.UUID, eventType string, payload map[string]interface{})
}

/* Broker tracks pending confirmation requests */
type Broker struct {
	pending   sync.Map /* uuid.UUID -> *Request */
	store     Store
	publisher Publisher
	timeout   time.Duration
}

/* NewBroker creates a confirmation broker. store and publisher may be
 * nil. A non-positive timeout falls back to the default. */
func NewBroker(store Store, publisher Publisher, timeout time.Duration) *Broker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Broker{store: store, publisher: publisher, timeout: timeout}
}

/* Register creates a pending request. The returned channel delivers
 * exactly one Decision. */
func (b *Broker) Register(ctx context.Context, caseID, workflowID uuid.UUID, action string) (*Request, <-chan Decision, error) {
	req := &Request{
		ID:                uuid.New(),
		CaseID:            caseID,
		WorkflowID:        workflowID,
		ActionDescription: action,
		CreatedAt:         time.Now().UTC(),
		decision:          make(chan Decision, 1),
	}

	if b.store != nil {
		row := &db.ConfirmationRequest{
			ID:                req.ID,
			CaseID:            caseID,
			WorkflowID:        workflowID,
			ActionDescription: action,
		}
		if err := b.store.CreateConfirmation(ctx, row); err != nil {
			return nil, nil, err
		}
	}

	b.pending.Store(req.ID, req)
	metrics.RecordConfirmationRequested()

	if b.publisher != nil {
		b.publisher.Publish(caseID, "confirmation_requested", map[string]interface{}{
			"request_id": req.ID.String(),
			"action":     action,
		})
	}

	metrics.InfoWithContext(ctx, "Confirmation request registered", map[string]interface{}{
		"request_id": req.ID.String(),
		"case_id":    caseID.String(),
	})

	return req, req.decision, nil
}

/* Resolve applies a decision. Returns false when the id is unknown or
 * the request was already resolved, without touching the stored
 * decision. */
func (b *Broker) Resolve(ctx context.Context, requestID uuid.UUID, approved bool, reason string) bool {
	return b.resolve(ctx, requestID, approved, reason, "human")
}

func (b *Broker) resolve(ctx context.Context, requestID uuid.UUID, approved bool, reason, actor string) bool {
	v, ok := b.pending.Load(requestID)
	if !ok {
		return false
	}
	req := v.(*Request)

	if !req.state.CompareAndSwap(statePending, stateResolved) {
		return false
	}
	b.pending.Delete(requestID)

	status := db.ConfirmationRejected
	outcome := "rejected"
	if approved {
		status = db.ConfirmationApproved
		outcome = "approved"
	}

	if b.store != nil {
		if _, err := b.store.ResolveConfirmation(ctx, requestID, status, reason); err != nil {
			metrics.ErrorWithContext(ctx, "Failed to persist confirmation decision", err, map[string]interface{}{
				"request_id": requestID.String(),
			})
		}
	}

	metrics.RecordConfirmationResolved(outcome, time.Since(req.CreatedAt))

	if b.publisher != nil {
		b.publisher.Publish(req.CaseID, "confirmation_resolved", map[string]interface{}{
			"request_id": requestID.String(),
			"approved":   approved,
			"actor":      actor,
		})
	}

	req.decision <- Decision{Approved: approved, Reason: reason}
	return true
}

/* ListPending returns this case's pending requests, oldest first. */
func (b *Broker) ListPending(caseID uuid.UUID) []*Request {
	var out []*Request
	b.pending.Range(func(_, v interface{}) bool {
		req := v.(*Request)
		if req.CaseID == caseID && req.state.Load() == statePending {
			out = append(out, req)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

/* ForceRejectCase rejects every pending request for a case. Used on
 * workflow cancellation. Returns the number rejected. */
func (b *Broker) ForceRejectCase(ctx context.Context, caseID uuid.UUID, reason string) int {
	var ids []uuid.UUID
	b.pending.Range(func(_, v interface{}) bool {
		req := v.(*Request)
		if req.CaseID == caseID {
			ids = append(ids, req.ID)
		}
		return true
	})

	rejected := 0
	for _, id := range ids {
		if b.resolve(ctx, id, false, reason, "system") {
			rejected++
		}
	}

	/* Sweep rows still pending in the store but absent from the map,
	 * left over from a run of a previous process. */
	if b.store != nil {
		n, err := b.store.RejectPendingByCase(ctx, caseID, reason)
		if err != nil {
			metrics.ErrorWithContext(ctx, "Failed to sweep persisted confirmations", err, map[string]interface{}{
				"case_id": caseID.String(),
			})
		} else {
			rejected += int(n)
		}
	}
	return rejected
}

/* Confirm registers a request and blocks until decision, timeout, or
 * ctx cancellation. Timeout and cancellation auto-reject so no request
 * is left dangling. */
func (b *Broker) Confirm(ctx context.Context, caseID, workflowID uuid.UUID, action string) (bool, string, error) {
	req, decisionCh, err := b.Register(ctx, caseID, workflowID, action)
	if err != nil {
		return false, "", err
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case d := <-decisionCh:
		return d.Approved, d.Reason, nil
	case <-timer.C:
		reason := "confirmation timed out awaiting a decision"
		if b.resolve(ctx, req.ID, false, reason, "system") {
			return false, reason, nil
		}
		/* Lost the resolve race: whichever resolver won the CAS sends
		 * exactly one decision on the buffered channel, wait for it. */
		d := <-decisionCh
		return d.Approved, d.Reason, nil
	case <-ctx.Done():
		reason := "workflow cancelled while awaiting confirmation"
		b.resolve(context.WithoutCancel(ctx), req.ID, false, reason, "system")
		return false, reason, ctx.Err()
	}
}

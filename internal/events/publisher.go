/*-------------------------------------------------------------------------
 *
 * publisher.go
 *    Per-case event broadcast for CaseTrace
 *
 * Observers attach to a case id and receive events published while
 * attached. Delivery is at-most-once with no history replay, and a
 * slow observer's full channel drops the event rather than blocking
 * the pipeline. A heartbeat ticks independently of pipeline activity
 * to keep transports open.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/events/publisher.go
 *
 *-------------------------------------------------------------------------
 */

package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/casetrace/CaseTrace/internal/metrics"
)

/* HeartbeatInterval is how often heartbeat events are emitted */
const HeartbeatInterval = 15 * time.Second

const subscriberBuffer = 64

/* Event is one broadcast message */
type Event struct {
	Type      string                 `json:"event"`
	CaseID    uuid.UUID              `json:"case_id"`
	Payload   map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

/* Subscriber is one attached observer */
type Subscriber struct {
	ID uuid.UUID
	Ch chan Event
}

type topic struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscriber
}

/* Publisher fans events out to per-case observers */
type Publisher struct {
	mu     sync.RWMutex
	topics map[uuid.UUID]*topic

	stopOnce sync.Once
	stop     chan struct{}
}

/* NewPublisher creates a publisher and starts its heartbeat loop */
func NewPublisher() *Publisher {
	p := &Publisher{
		topics: make(map[uuid.UUID]*topic),
		stop:   make(chan struct{}),
	}
	go p.heartbeatLoop()
	return p
}

/* Subscribe attaches an observer to a case. The returned subscriber's
 * channel receives events until Unsubscribe. */
func (p *Publisher) Subscribe(caseID uuid.UUID) *Subscriber {
	sub := &Subscriber{
		ID: uuid.New(),
		Ch: make(chan Event, subscriberBuffer),
	}

	p.mu.Lock()
	t, ok := p.topics[caseID]
	if !ok {
		t = &topic{subs: make(map[uuid.UUID]*Subscriber)}
		p.topics[caseID] = t
	}
	p.mu.Unlock()

	t.mu.Lock()
	t.subs[sub.ID] = sub
	t.mu.Unlock()

	metrics.RecordSubscriberAdded()
	return sub
}

/* Unsubscribe detaches an observer and closes its channel */
func (p *Publisher) Unsubscribe(caseID uuid.UUID, sub *Subscriber) {
	p.mu.RLock()
	t, ok := p.topics[caseID]
	p.mu.RUnlock()
	if !ok {
		return
	}

	t.mu.Lock()
	if _, present := t.subs[sub.ID]; present {
		delete(t.subs, sub.ID)
		close(sub.Ch)
		metrics.RecordSubscriberRemoved()
	}
	t.mu.Unlock()
}

/* Publish broadcasts an event to the case's current observers.
 * Non-blocking: a full subscriber channel drops the event. */
func (p *Publisher) Publish(caseID uuid.UUID, eventType string, payload map[string]interface{}) {
	p.mu.RLock()
	t, ok := p.topics[caseID]
	p.mu.RUnlock()
	if !ok {
		return
	}

	ev := Event{
		Type:      eventType,
		CaseID:    caseID,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, sub := range t.subs {
		select {
		case sub.Ch <- ev:
		default:
			metrics.RecordEventDropped()
		}
	}
}

/* DropCase detaches every observer of a case and discards its topic.
 * Called when a case's workflow is cancelled. */
func (p *Publisher) DropCase(caseID uuid.UUID) {
	p.mu.Lock()
	t, ok := p.topics[caseID]
	if ok {
		delete(p.topics, caseID)
	}
	p.mu.Unlock()
	if !ok {
		return
	}

	t.mu.Lock()
	for id, sub := range t.subs {
		delete(t.subs, id)
		close(sub.Ch)
		metrics.RecordSubscriberRemoved()
	}
	t.mu.Unlock()
}

/* Close stops the heartbeat loop and drops every topic */
func (p *Publisher) Close() {
	p.stopOnce.Do(func() { close(p.stop) })

	p.mu.Lock()
	caseIDs := make([]uuid.UUID, 0, len(p.topics))
	for id := range p.topics {
		caseIDs = append(caseIDs, id)
	}
	p.mu.Unlock()

	for _, id := range caseIDs {
		p.DropCase(id)
	}
}

/* heartbeatLoop publishes heartbeats to every topic regardless of
 * pipeline activity. */
func (p *Publisher) heartbeatLoop() {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.mu.RLock()
			caseIDs := make([]uuid.UUID, 0, len(p.topics))
			for id := range p.topics {
				caseIDs = append(caseIDs, id)
			}
			p.mu.RUnlock()

			for _, id := range caseIDs {
				p.Publish(id, "heartbeat", map[string]interface{}{"data": "ping"})
			}
		}
	}
}

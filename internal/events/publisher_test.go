/*-------------------------------------------------------------------------
 *
 * publisher_test.go
 *    Tests for the per-case event publisher
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 *-------------------------------------------------------------------------
 */

package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestPublishReachesAllObservers(t *testing.T) {
	p := NewPublisher()
	defer p.Close()
	caseID := uuid.New()

	s1 := p.Subscribe(caseID)
	s2 := p.Subscribe(caseID)

	p.Publish(caseID, "stage_changed", map[string]interface{}{"stage": "TRIAGING"})

	for i, s := range []*Subscriber{s1, s2} {
		select {
		case ev := <-s.Ch:
			if ev.Type != "stage_changed" {
				t.Errorf("subscriber %d got type %q", i, ev.Type)
			}
			if ev.CaseID != caseID {
				t.Errorf("subscriber %d got case %s", i, ev.CaseID)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d received nothing", i)
		}
	}
}

func TestPublishScopedToCase(t *testing.T) {
	p := NewPublisher()
	defer p.Close()

	mine := p.Subscribe(uuid.New())
	otherCase := uuid.New()
	p.Subscribe(otherCase)

	p.Publish(otherCase, "agent_started", nil)

	select {
	case ev := <-mine.Ch:
		t.Errorf("received cross-case event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNoReplayForLateJoiners(t *testing.T) {
	p := NewPublisher()
	defer p.Close()
	caseID := uuid.New()

	/* Published with no observers attached: gone */
	p.Publish(caseID, "stage_changed", nil)

	late := p.Subscribe(caseID)
	select {
	case ev := <-late.Ch:
		t.Errorf("late joiner replayed event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowObserverDropsNotBlocks(t *testing.T) {
	p := NewPublisher()
	defer p.Close()
	caseID := uuid.New()

	sub := p.Subscribe(caseID)

	/* Overfill the channel, the publisher must not block */
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			p.Publish(caseID, "agent_thinking", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow observer")
	}

	if len(sub.Ch) != subscriberBuffer {
		t.Errorf("buffered events = %d, want %d", len(sub.Ch), subscriberBuffer)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	p := NewPublisher()
	defer p.Close()
	caseID := uuid.New()

	sub := p.Subscribe(caseID)
	p.Unsubscribe(caseID, sub)

	if _, open := <-sub.Ch; open {
		t.Error("channel still open after unsubscribe")
	}

	/* Double unsubscribe is a no-op */
	p.Unsubscribe(caseID, sub)

	/* Publishing after unsubscribe must not panic */
	p.Publish(caseID, "stage_changed", nil)
}

func TestDropCase(t *testing.T) {
	p := NewPublisher()
	defer p.Close()
	caseID := uuid.New()

	s1 := p.Subscribe(caseID)
	s2 := p.Subscribe(caseID)
	other := p.Subscribe(uuid.New())

	p.DropCase(caseID)

	for i, s := range []*Subscriber{s1, s2} {
		if _, open := <-s.Ch; open {
			t.Errorf("subscriber %d channel still open after drop", i)
		}
	}

	select {
	case _, open := <-other.Ch:
		if !open {
			t.Error("unrelated case's subscriber was closed")
		}
	default:
	}
}

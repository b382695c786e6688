/*-------------------------------------------------------------------------
 *
 * streaming_test.go
 *    Tests for SSE frame encoding
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/casetrace/CaseTrace/internal/events"
)

func TestSendSSEHeartbeatIsBareKeepalive(t *testing.T) {
	rec := httptest.NewRecorder()

	ev := events.Event{
		Type:      "heartbeat",
		CaseID:    uuid.New(),
		Payload:   map[string]interface{}{"data": "ping"},
		Timestamp: time.Now().UTC(),
	}
	sendSSE(rec, rec, ev.Type, ev)

	if got := rec.Body.String(); got != "event: heartbeat\ndata: ping\n\n" {
		t.Errorf("heartbeat frame = %q, want bare ping", got)
	}
}

func TestSendSSEEnvelopesPipelineEvents(t *testing.T) {
	rec := httptest.NewRecorder()

	ev := events.Event{
		Type:      "stage_changed",
		CaseID:    uuid.New(),
		Payload:   map[string]interface{}{"stage": "TRIAGING"},
		Timestamp: time.Now().UTC(),
	}
	sendSSE(rec, rec, ev.Type, ev)

	body := rec.Body.String()
	if !strings.HasPrefix(body, "event: stage_changed\n") {
		t.Errorf("frame missing event line: %q", body)
	}
	if !strings.Contains(body, `"stage":"TRIAGING"`) {
		t.Errorf("frame missing payload: %q", body)
	}
	if !strings.Contains(body, ev.CaseID.String()) {
		t.Errorf("frame missing case id: %q", body)
	}
	if !strings.HasSuffix(body, "\n\n") {
		t.Errorf("frame not terminated: %q", body)
	}
}

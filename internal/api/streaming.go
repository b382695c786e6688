/*-------------------------------------------------------------------------
 *
 * streaming.go
 *    Server-Sent Events (SSE) streaming for CaseTrace API
 *
 * Streams per-case investigation events to attached observers using
 * the Server-Sent Events protocol. Delivery is at-most-once: a slow
 * consumer misses events rather than stalling the pipeline.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/api/streaming.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

/* StreamCaseEvents attaches an SSE observer to a case's event topic */
func (h *Handlers) StreamCaseEvents(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	caseID, apiErr := parseUUIDVar(r, "id", "event_stream", requestID)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	if _, err := h.queries.GetCaseByID(r.Context(), caseID); err != nil {
		respondError(w, WrapError(ErrNotFound, requestID))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sub := h.publisher.Subscribe(caseID)
	defer h.publisher.Unsubscribe(caseID, sub)

	/* Tell the client the stream is live before any pipeline event */
	sendSSE(w, flusher, "connected", map[string]interface{}{
		"case_id": caseID.String(),
	})

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-sub.Ch:
			if !open {
				/* Case dropped or publisher shut down */
				return
			}
			sendSSE(w, flusher, ev.Type, ev)
		}
	}
}

func sendSSE(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) {
	/* Heartbeats are bare keepalives, not event envelopes */
	if event == "heartbeat" {
		fmt.Fprint(w, "event: heartbeat\ndata: ping\n\n")
		flusher.Flush()
		return
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
}

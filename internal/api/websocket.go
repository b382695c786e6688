/*-------------------------------------------------------------------------
 *
 * websocket.go
 *    WebSocket handler for CaseTrace API
 *
 * Provides WebSocket delivery of per-case investigation events for
 * clients that cannot hold an SSE connection.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/api/websocket.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/casetrace/CaseTrace/internal/events"
	"github.com/casetrace/CaseTrace/internal/metrics"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true /* Allow all origins in development */
	},
	HandshakeTimeout: 10 * time.Second,
}

const (
	/* WebSocket connection timeouts */
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

/* WatchCaseEvents upgrades the connection and forwards case events
 * until the client disconnects */
func (h *Handlers) WatchCaseEvents(w http.ResponseWriter, r *http.Request) {
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

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.WarnWithContext(r.Context(), "WebSocket upgrade failed", map[string]interface{}{
			"case_id": caseID.String(),
			"error":   err.Error(),
		})
		return
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	sub := h.publisher.Subscribe(caseID)

	done := make(chan struct{})

	/* Reader detects client close and pong replies */
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go h.writeCaseEvents(conn, caseID, sub, done)
}

func (h *Handlers) writeCaseEvents(conn *websocket.Conn, caseID uuid.UUID, sub *events.Subscriber, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.publisher.Unsubscribe(caseID, sub)
		conn.Close()
	}()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev, open := <-sub.Ch:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !open {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "case closed"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

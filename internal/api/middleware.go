/*-------------------------------------------------------------------------
 *
 * middleware.go
 *    HTTP middleware for CaseTrace API
 *
 * Provides authentication, CORS, security headers, and request logging
 * middleware for the CaseTrace HTTP API server.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/api/middleware.go
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/casetrace/CaseTrace/internal/auth"
	"github.com/casetrace/CaseTrace/internal/metrics"
)

type contextKey string

const apiKeyContextKey contextKey = "api_key"

/* AuthMiddleware authenticates requests using API keys */
func AuthMiddleware(keyManager *auth.APIKeyManager, rateLimiter *auth.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			/* Health and metrics endpoints stay open */
			if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			requestID := GetRequestID(r.Context())

			key := extractAPIKey(r)
			if key == "" {
				respondError(w, WrapError(ErrUnauthorized, requestID))
				return
			}

			apiKey, err := keyManager.ValidateAPIKey(r.Context(), key)
			if err != nil {
				metrics.WarnWithContext(r.Context(), "API key validation failed", map[string]interface{}{
					"key_prefix": auth.GetKeyPrefix(key),
					"error":      err.Error(),
				})
				respondError(w, WrapError(ErrUnauthorized, requestID))
				return
			}

			if !rateLimiter.CheckLimit(apiKey.ID.String(), apiKey.RateLimitPerMin) {
				respondError(w, WrapError(NewError(http.StatusTooManyRequests, "rate limit exceeded", nil), requestID))
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyContextKey, apiKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

/* extractAPIKey reads the key from the Authorization header (Bearer or
 * ApiKey scheme) or, for browser event streams, the api_key query
 * parameter */
func extractAPIKey(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Fields(authHeader)
		if len(parts) == 2 && (parts[0] == "Bearer" || parts[0] == "ApiKey") {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("api_key")
}

/* SecurityHeadersMiddleware adds security headers to all HTTP responses */
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

/* CORSMiddleware adds CORS headers */
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

/* LoggingMiddleware records request metrics with status codes */
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		metrics.RecordHTTPRequest(r.Method, r.URL.Path, wrapped.statusCode, duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

/* Flush lets wrapped handlers keep streaming SSE responses */
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

/* Hijack lets the WebSocket upgrade pass through the wrapper */
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("response writer does not support hijacking")
}

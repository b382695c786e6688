/*-------------------------------------------------------------------------
 *
 * hasher_test.go
 *    Tests for API key hashing and rate limiting
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/auth/hasher_test.go
 *
 *-------------------------------------------------------------------------
 */

package auth

import "testing"

func TestHashAndVerifyAPIKey(t *testing.T) {
	key := "ct_test_key_1234567890"

	hash, err := HashAPIKey(key)
	if err != nil {
		t.Fatalf("HashAPIKey() error = %v", err)
	}
	if hash == key {
		t.Fatal("HashAPIKey() returned the plaintext key")
	}

	if !VerifyAPIKey(key, hash) {
		t.Error("VerifyAPIKey() = false for correct key")
	}
	if VerifyAPIKey("wrong-key", hash) {
		t.Error("VerifyAPIKey() = true for wrong key")
	}
}

func TestGetKeyPrefix(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"long key", "abcdefghij", "abcdefgh"},
		{"exact length", "abcdefgh", "abcdefgh"},
		{"short key", "abc", "abc"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetKeyPrefix(tt.key); got != tt.want {
				t.Errorf("GetKeyPrefix(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 3; i++ {
		if !rl.CheckLimit("key-1", 3) {
			t.Fatalf("CheckLimit() = false on request %d, want true", i+1)
		}
	}
	if rl.CheckLimit("key-1", 3) {
		t.Error("CheckLimit() = true past the limit, want false")
	}

	/* Another key has its own window */
	if !rl.CheckLimit("key-2", 3) {
		t.Error("CheckLimit() = false for a fresh key, want true")
	}
}

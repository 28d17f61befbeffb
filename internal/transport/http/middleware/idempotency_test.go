package middleware

import (
	"context"
	"testing"
)

func TestRequestHashDeterministic(t *testing.T) {
	hash1 := RequestHash([]byte(`{"entries":[{"date":"2026-02-02","hours":2}]}`))
	hash2 := RequestHash([]byte(`{"entries":[{"date":"2026-02-02","hours":2}]}`))
	hash3 := RequestHash([]byte(`{"entries":[{"date":"2026-02-03","hours":2}]}`))

	if hash1 != hash2 {
		t.Fatal("expected deterministic hash for identical payloads")
	}
	if hash1 == hash3 {
		t.Fatal("expected different hash for different payload")
	}
}

func TestIdempotencyStoreNilIsNoop(t *testing.T) {
	var store *IdempotencyStore

	replay, found, err := store.Check(context.Background(), "user-1", "overtime.submit", "key-1", "hash-1")
	if err != nil {
		t.Fatalf("expected nil store check to succeed, got %v", err)
	}
	if found || replay != nil {
		t.Fatal("expected nil store to report no stored response")
	}

	if err := store.Save(context.Background(), "user-1", "overtime.submit", "key-1", "hash-1", nil); err != nil {
		t.Fatalf("expected nil store save to succeed, got %v", err)
	}
}

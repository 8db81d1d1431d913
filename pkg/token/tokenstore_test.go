package tokenstore

import (
	"testing"
	"time"
)

func TestRevoke(t *testing.T) {
	s := New()
	s.Revoke("abc", time.Now().Add(time.Hour))

	if !s.IsRevoked("abc") {
		t.Fatalf("expected abc to be revoked")
	}
	if s.IsRevoked("other") {
		t.Fatalf("expected unrelated jti to be valid")
	}
	if s.IsRevoked("") {
		t.Fatalf("empty jti must never count as revoked")
	}
}

func TestExpiredRevocationsArePruned(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New()
	s.Now = func() time.Time { return now }

	s.Revoke("old", now.Add(time.Minute))
	now = now.Add(2 * time.Minute)
	s.Revoke("new", now.Add(time.Hour))

	if s.Len() != 1 {
		t.Fatalf("expected only the live revocation to remain, got %d", s.Len())
	}
	if !s.IsRevoked("new") {
		t.Fatalf("expected new to stay revoked")
	}
}

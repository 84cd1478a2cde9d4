package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestUserIDForSubjectIsStableUUID(t *testing.T) {
	a := UserIDForSubject("1234567890")
	b := UserIDForSubject("1234567890")
	if a != b {
		t.Fatalf("expected stable id, got %q and %q", a, b)
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("id is not a uuid: %v", err)
	}
	if a == UserIDForSubject("other-subject") {
		t.Fatal("different subjects must map to different ids")
	}
}

func TestStateStoreConsumeOnce(t *testing.T) {
	store := newStateStore()
	store.put("s1", time.Now().Add(time.Minute))

	if !store.consume("s1") {
		t.Fatal("first consume should succeed")
	}
	if store.consume("s1") {
		t.Fatal("second consume should fail")
	}
	if store.consume("unknown") {
		t.Fatal("unknown state should fail")
	}
}

func TestStateStoreExpiry(t *testing.T) {
	store := newStateStore()
	store.put("s1", time.Now().Add(-time.Second))
	if store.consume("s1") {
		t.Fatal("expired state should fail")
	}
}

func TestAppendToken(t *testing.T) {
	got, err := appendToken("https://ui.example.com/auth", "tok123")
	if err != nil {
		t.Fatalf("appendToken: %v", err)
	}
	if got != "https://ui.example.com/auth?token=tok123" {
		t.Fatalf("unexpected url: %q", got)
	}
	if _, err := appendToken("", "tok"); err == nil {
		t.Fatal("expected error for empty redirect url")
	}
}

package profiles

import (
	"context"
	"testing"
)

func TestUpsertFromAuthValidation(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if err := svc.UpsertFromAuth(ctx, Profile{ID: "", Email: "a@b.c"}); err == nil {
		t.Fatal("expected error for missing id")
	}
	if err := svc.UpsertFromAuth(ctx, Profile{ID: "p1", Email: ""}); err == nil {
		t.Fatal("expected error for missing email")
	}
	if err := svc.UpsertFromAuth(ctx, Profile{ID: "p1", Email: "a@b.c", FullName: "A B"}); err != nil {
		t.Fatalf("UpsertFromAuth: %v", err)
	}

	got, err := svc.GetByID(ctx, "p1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != "a@b.c" || got.FullName != "A B" {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestUpsertPreservesAdminFlag(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	if err := svc.UpsertFromAuth(ctx, Profile{ID: "p1", Email: "a@b.c"}); err != nil {
		t.Fatalf("UpsertFromAuth: %v", err)
	}
	repo.SetAdmin("p1", true)

	// Re-login must not reset the flag.
	if err := svc.UpsertFromAuth(ctx, Profile{ID: "p1", Email: "a@b.c", FullName: "Renamed"}); err != nil {
		t.Fatalf("UpsertFromAuth: %v", err)
	}

	isAdmin, err := svc.IsAdmin(ctx, "p1")
	if err != nil {
		t.Fatalf("IsAdmin: %v", err)
	}
	if !isAdmin {
		t.Fatal("admin flag lost after upsert")
	}
}

func TestIsAdminUnknownProfile(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	isAdmin, err := svc.IsAdmin(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("IsAdmin: %v", err)
	}
	if isAdmin {
		t.Fatal("unknown profile must not be admin")
	}
}

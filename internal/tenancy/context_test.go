package tenancy

import (
	"context"
	"testing"
)

func TestWithActorAndActorFromContext(t *testing.T) {
	ctx := WithActor(context.Background(), Actor{ProfileID: "prof-123", IsAdmin: true})

	got, ok := ActorFromContext(ctx)
	if !ok {
		t.Fatalf("expected actor to be present")
	}
	if got.ProfileID != "prof-123" || !got.IsAdmin {
		t.Fatalf("unexpected actor %+v", got)
	}
	id, ok := ProfileIDFromContext(ctx)
	if !ok || id != "prof-123" {
		t.Fatalf("expected prof-123, got %q", id)
	}
}

func TestActorFromContext_EmptyOrMissing(t *testing.T) {
	if _, ok := ActorFromContext(context.Background()); ok {
		t.Fatalf("expected missing actor to return false")
	}

	ctx := context.WithValue(context.Background(), actorKey, "prof-123")
	if _, ok := ActorFromContext(ctx); ok {
		t.Fatalf("expected wrongly typed actor to return false")
	}

	ctx = WithActor(context.Background(), Actor{})
	if _, ok := ActorFromContext(ctx); ok {
		t.Fatalf("expected empty profile id to return false")
	}
}

package actorctx_test

import (
	"context"
	"testing"

	"github.com/geocoder89/accounthub/internal/actorctx"
	"github.com/geocoder89/accounthub/internal/domain/user"
)

func TestIdentityRoundTrip(t *testing.T) {
	ctx := context.Background()

	if _, ok := actorctx.IdentityFrom(ctx); ok {
		t.Fatalf("empty context should carry no identity")
	}

	ctx = actorctx.WithIdentity(ctx, user.Identity{ID: "u1", Role: user.RoleAdmin})

	id, ok := actorctx.IdentityFrom(ctx)
	if !ok || id.ID != "u1" || !id.IsAdmin() {
		t.Fatalf("unexpected identity %+v %v", id, ok)
	}

	if uid, ok := actorctx.UserIDFrom(ctx); !ok || uid != "u1" {
		t.Fatalf("unexpected user id %q", uid)
	}

	if _, ok := actorctx.IdentityFrom(actorctx.WithIdentity(context.Background(), user.Identity{})); ok {
		t.Fatalf("identity without id must not count")
	}
}

package actorctx

import (
	"context"

	"github.com/geocoder89/accounthub/internal/domain/user"
)

type ctxKey struct{}

// WithIdentity attaches the authenticated identity to ctx.
func WithIdentity(ctx context.Context, id user.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFrom(ctx context.Context) (user.Identity, bool) {
	v, ok := ctx.Value(ctxKey{}).(user.Identity)

	return v, ok && v.ID != ""
}

func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := IdentityFrom(ctx)

	return id.ID, ok
}

package cont

import (
	"context"

	"NovaCS/entity"
)

type contextKey string

const userKey contextKey = "user"

// PutUser stores the authenticated identity on the request context.
func PutUser(ctx context.Context, user *entity.UserAuth) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser returns the authenticated identity, nil when the request was
// not authenticated.
func GetUser(ctx context.Context) *entity.UserAuth {
	user, _ := ctx.Value(userKey).(*entity.UserAuth)
	return user
}

package controller

import (
	"context"

	"github.com/lucent-admin/lucent/internal/store"
)

type contextKey string

const userKey contextKey = "current_user"

// WithUser returns a context carrying the signed-in admin user record.
func WithUser(ctx context.Context, user store.Record) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the signed-in admin user record, or nil.
func UserFromContext(ctx context.Context) store.Record {
	user, _ := ctx.Value(userKey).(store.Record)
	return user
}

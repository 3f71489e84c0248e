package service

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	ctxActorIDKey    ctxKey = "actorID"
	ctxIndustryIDKey ctxKey = "industryID"
	ctxRoleKey       ctxKey = "role"
)

type Role string

const (
	RoleAdmin    Role = "ROLE_ADMIN"
	RoleIndustry Role = "ROLE_INDUSTRY"
	RoleSeller   Role = "ROLE_SELLER"
	RoleBroker   Role = "ROLE_BROKER"
)

func WithActorID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxActorIDKey, id)
}

func ActorIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ctxActorIDKey).(uuid.UUID)
	return v, ok
}

// WithIndustryID attaches the tenant the actor belongs to. Brokers act
// outside any industry and carry uuid.Nil.
func WithIndustryID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxIndustryIDKey, id)
}

func IndustryIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ctxIndustryIDKey).(uuid.UUID)
	return v, ok
}

func WithRole(ctx context.Context, r Role) context.Context {
	return context.WithValue(ctx, ctxRoleKey, r)
}

func RoleFromContext(ctx context.Context) (Role, bool) {
	v, ok := ctx.Value(ctxRoleKey).(Role)
	return v, ok
}

package utils

import (
	"context"

	"github.com/refinehaus/clinic_backend/appctx"
)

// Alias the shared context key type so existing code keeps working.
type contextKey = appctx.ContextKey

var (
	ContextKeyToken         = appctx.ContextKeyToken
	ContextKeyStaffId       = appctx.ContextKeyStaffId
	ContextKeyStaffRole     = appctx.ContextKeyStaffRole
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

func GetTokenFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyToken)
}

func GetStaffIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyStaffId)
}

func GetStaffRoleFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyStaffRole)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyToken, token)
}

func SetStaffIdInContext(ctx context.Context, staffId int) context.Context {
	return appctx.Set(ctx, ContextKeyStaffId, staffId)
}

func SetStaffRoleInContext(ctx context.Context, role string) context.Context {
	return appctx.Set(ctx, ContextKeyStaffRole, role)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

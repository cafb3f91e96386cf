package auth

import (
	"context"

	"autovitrine/precos/internal/common"
)

type contextKey string

var adminClaimsKey contextKey = "admin_claims"
var requestIDKey contextKey = "request_id"

func SetAdminClaims(ctx context.Context, claims *common.AdminClaims) context.Context {
	return context.WithValue(ctx, adminClaimsKey, claims)
}

func GetAdminClaims(ctx context.Context) *common.AdminClaims {
	val := ctx.Value(adminClaimsKey)
	if claims, ok := val.(*common.AdminClaims); ok {
		return claims
	}
	return nil
}

// SetRequestID stores the request id for handlers and loggers.
func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

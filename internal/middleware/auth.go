package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"autovitrine/precos/internal/auth"
	"autovitrine/precos/internal/common"
	"autovitrine/precos/internal/logging"
)

// AdminAuthMiddleware requires a valid admin bearer token.
func AdminAuthMiddleware(signer *common.TokenSigner) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				common.RespondError(w, start, nil, "Unauthorized. Missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := signer.Validate(token)
			switch {
			case errors.Is(err, common.ErrNotAdmin):
				common.RespondError(w, start, nil, "Forbidden. Admin role required", http.StatusForbidden)
				return
			case err != nil:
				logging.Warn("Rejected admin token", "request_id", auth.GetRequestID(r.Context()), "error", err.Error())
				common.RespondError(w, start, nil, "Unauthorized. Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := auth.SetAdminClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

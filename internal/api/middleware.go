package api

import (
	"net/http"
	"strings"
	"time"

	"hotelsync/pkg/authtoken"
	"hotelsync/pkg/config"
)

// AdminAuth verifies operator bearer tokens.
//
// Expected header:
// - Authorization: Bearer <JWT>
//
// Outside prod, a missing Authorization header can be replaced by
// X-Operator to keep local testing simple.
func AdminAuth(cfg config.Config, now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				token := strings.TrimSpace(authz[7:])
				op, err := authtoken.Verify(token, cfg.Admin.Audience, cfg.Admin.TokenSecret, now())
				if err != nil {
					WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid operator token")
					return
				}
				next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), op)))
				return
			}

			if cfg.AppEnv != "prod" {
				if name := strings.TrimSpace(r.Header.Get("X-Operator")); name != "" {
					op := &authtoken.Operator{Subject: name, Role: "dev"}
					next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), op)))
					return
				}
			}

			WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing operator identity")
		})
	}
}

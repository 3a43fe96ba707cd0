package middleware

import (
	"net/http"

	"github.com/angelmondragon/gatewaysync/api/responses"
	"github.com/angelmondragon/gatewaysync/api/validators"
	pkgAuth "github.com/angelmondragon/gatewaysync/pkg/auth"
	"github.com/angelmondragon/gatewaysync/pkg/config"
	pkgerrors "github.com/angelmondragon/gatewaysync/pkg/errors"
	"github.com/angelmondragon/gatewaysync/pkg/logger"
)

// AdminAuth validates an admin bearer token and seeds the request context
// with its subject. An unconfigured secret rejects every request.
func AdminAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Secret == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "admin auth not configured"))
				return
			}

			token, err := validators.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAdminToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithAdminSubject(r.Context(), claims.Subject)
			ctx = logg.WithField(ctx, "admin_subject", claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

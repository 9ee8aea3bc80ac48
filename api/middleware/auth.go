package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/entregave/dispatch-backend/api/responses"
	pkgauth "github.com/entregave/dispatch-backend/pkg/auth"
	"github.com/entregave/dispatch-backend/pkg/config"
	"github.com/entregave/dispatch-backend/pkg/db/models"
	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/logger"
)

const apiKeyHeader = "X-API-Key"

// KeyVerifier resolves a presented API key to its stored credential.
type KeyVerifier interface {
	Verify(ctx context.Context, presented string) (*models.APIKey, error)
}

// Auth authenticates the request and seeds the context with a principal.
// Panel operators present a bearer JWT; partner systems present X-API-Key.
func Auth(cfg config.JWTConfig, keys KeyVerifier, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := strings.TrimSpace(r.Header.Get(apiKeyHeader)); raw != "" {
				if keys == nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "api keys not accepted"))
					return
				}
				key, err := keys.Verify(r.Context(), raw)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
				principal := Principal{Kind: PrincipalPartner, Client: key.ClientName}
				ctx := WithPrincipal(r.Context(), principal)
				if logg != nil {
					ctx = logg.WithField(ctx, "api_client", key.ClientName)
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.OperatorID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing operator id"))
				return
			}

			principal := Principal{
				Kind:       PrincipalOperator,
				OperatorID: claims.OperatorID,
				Name:       claims.Name,
				Role:       claims.Role,
			}
			ctx := WithPrincipal(r.Context(), principal)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"operator_id": claims.OperatorID,
					"actor_role":  string(claims.Role),
				})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

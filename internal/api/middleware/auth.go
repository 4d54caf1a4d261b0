package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/template-backend/internal/api/operation"
	"github.com/99minutos/template-backend/internal/infrastructure/auth"
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type claimsKey struct{}

// Bearer identifies the caller from the Authorization header. It never
// rejects: a missing or invalid token just leaves the request anonymous, and
// operations that declare a security requirement refuse it later through
// RequireClaims.
func Bearer(v TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return next(c)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return next(c)
			}

			claims, err := v.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				return next(c)
			}

			r := c.Request()
			c.SetRequest(r.WithContext(WithClaims(r.Context(), claims)))
			c.Set("username", claims.Username)
			c.Set("user_id", claims.UserID)

			return next(c)
		}
	}
}

// WithClaims returns a copy of ctx carrying verified claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims attached by Bearer.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims, ok && claims != nil
}

// RequireClaims is the dispatcher's authenticator: a security scheme is
// satisfied when Bearer attached verified claims to the request.
func RequireClaims(ctx context.Context, _ string) error {
	if _, ok := ClaimsFromContext(ctx); !ok {
		return operation.ErrUnauthenticated
	}
	return nil
}

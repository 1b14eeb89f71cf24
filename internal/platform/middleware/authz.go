// Copyright (c) 2026 TrustFlow. All rights reserved.

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/trustflow/identity/internal/platform/apperr"
	"github.com/trustflow/identity/internal/platform/ctxutil"
	"github.com/trustflow/identity/internal/platform/respond"
	"github.com/trustflow/identity/internal/platform/sec"
)

// TokenValidator resolves an opaque session token into an authenticated
// principal. Implemented by the auth service; declared here so the
// middleware layer stays decoupled from the domain packages.
type TokenValidator interface {
	Validate(ctx context.Context, accessToken string) (*sec.Principal, error)
}

// Authenticate extracts a bearer token, validates the session, and attaches
// the resulting [sec.Principal] to the request context.
//
// Requests without an Authorization header pass through anonymously; use
// [RequireAuth] or [RequirePermission] on routes that must reject them.
// Requests with a malformed or invalid token are rejected outright: a bad
// credential is never treated the same as no credential.
func Authenticate(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			header := request.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(writer, request)
				return
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				respond.Error(writer, request, apperr.Unauthorized("Invalid authorization header format"))
				return
			}

			principal, err := validator.Validate(request.Context(), token)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			ctx := ctxutil.WithPrincipal(request.Context(), principal)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetPrincipal(request.Context()) == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequirePermission rejects requests whose principal does not hold the given
// resource/action permission. Anonymous requests get 401; authenticated ones
// without the grant get 403.
func RequirePermission(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			principal := ctxutil.GetPrincipal(request.Context())
			if principal == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}
			if !principal.Allows(resource, action) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

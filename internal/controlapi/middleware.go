package controlapi

import (
	"context"
	"net/http"
	"strings"
)

type contextKey int

const claimsContextKey contextKey = iota

// GetClaimsFromContext returns the claims stashed by JWTAuth/OptionalJWTAuth,
// or nil if none are present.
func GetClaimsFromContext(ctx context.Context) *Claims {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// extractBearerToken pulls the token out of an "Authorization: Bearer <token>"
// header, case-insensitively on the scheme.
func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

// JWTAuth requires a valid bearer token, rejecting the request with 401
// otherwise. On success, the parsed claims are attached to the request
// context.
func JWTAuth(svc *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractBearerToken(r)
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errorResponse("missing or malformed authorization header"))
				return
			}

			claims, err := svc.ValidateToken(tokenString)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse(err.Error()))
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalJWTAuth attaches claims to the request context when a valid
// bearer token is present, but never rejects the request.
func OptionalJWTAuth(svc *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractBearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := svc.ValidateToken(tokenString)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose claims do not carry the admin role,
// for mutating routes like force-disconnect.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse("authentication required"))
				return
			}
			if !claims.IsAdmin() {
				writeJSON(w, http.StatusForbidden, errorResponse("admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

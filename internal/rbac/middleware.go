package rbac

import (
	"net/http"
)

var defaultChecker = NewChecker(nil)

// Require enforces perm against the default policy.
func Require(perm string) func(http.Handler) http.Handler {
	return defaultChecker.RequireAny(perm)
}

// RequireAny enforces that the role holds one of perms under the default policy.
func RequireAny(perms ...string) func(http.Handler) http.Handler {
	return defaultChecker.RequireAny(perms...)
}

// Require enforces a single permission for the role in the request context.
func (c *Checker) Require(perm string) func(http.Handler) http.Handler {
	return c.RequireAny(perm)
}

// RequireAny rejects requests whose role holds none of perms. A request with
// no role is always rejected.
func (c *Checker) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" || !c.Any(role, perms...) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DefaultRole assigns role to requests that arrive without one, so anonymous
// callers are still judged by the policy.
func DefaultRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) == "" {
				r = r.WithContext(WithRole(r.Context(), role))
			}
			next.ServeHTTP(w, r)
		})
	}
}

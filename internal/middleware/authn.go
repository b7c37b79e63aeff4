// Package middleware carries the HTTP middleware shared by every route
// group: authentication resolution and principal context plumbing.
package middleware

import (
	"log"
	"net/http"

	"github.com/opentrusty/opentrusty/internal/services/iam"
)

// Authenticate resolves the request credential through an ordered
// authenticator chain and stores the resulting principal in the request
// context.
//
// Resolution:
//   - each authenticator either claims the credential or passes
//   - first (principal, nil) wins
//   - any (nil, error) ends the request with 401
//   - all (nil, nil): the request continues anonymously; route handlers
//     decide whether a principal is required
func Authenticate(authenticators ...iam.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			req := iam.NewAuthRequest(r)

			for _, a := range authenticators {
				principal, err := a.Authenticate(ctx, req)
				if err != nil {
					log.Printf("authentication failed for %s %s: %v", r.Method, r.URL.Path, err)
					writeUnauthenticated(w, err)
					return
				}
				if principal != nil {
					ctx = iam.ContextWithPrincipal(ctx, principal)
					break
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

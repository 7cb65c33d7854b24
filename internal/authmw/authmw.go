// Package authmw gates operator endpoints behind a static bearer token.
package authmw

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// Reject reasons passed to OnReject.
const (
	ReasonMissing = "missing"
	ReasonInvalid = "invalid"
)

// Options configures AdminToken.
type Options struct {
	// OnReject is called for every refused request.
	OnReject func(r *http.Request, reason string)
}

// AdminToken returns middleware that requires "Authorization: Bearer <token>".
// An empty token disables the check so single-node deployments without an
// admin token keep their operator routes reachable. Tokens are compared in
// constant time.
func AdminToken(token string, opts Options) func(http.Handler) http.Handler {
	if token == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, bearerPrefix) {
				reject(w, r, opts, ReasonMissing, "missing or malformed authorization header")
				return
			}
			if subtle.ConstantTimeCompare([]byte(auth[len(bearerPrefix):]), expected) != 1 {
				reject(w, r, opts, ReasonInvalid, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, opts Options, reason, msg string) {
	if opts.OnReject != nil {
		opts.OnReject(r, reason)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="carepath"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

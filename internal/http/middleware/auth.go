package middleware

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// AdminAuth guards mutating endpoints with HTTP basic auth checked
// against a bcrypt hash. An empty hash disables the guard.
func AdminAuth(passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if passwordHash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, password, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="evtracker"`)
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

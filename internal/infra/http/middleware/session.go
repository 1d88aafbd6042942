package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
)

type SessionSource interface {
	Current() *entity.Session
}

// RequireSession rejects requests while nobody is signed in.
func RequireSession(sessions SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sessions.Current() == nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{
					"code":    "NOT_AUTHENTICATED",
					"message": entity.ErrNotAuthenticated.Error(),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package handlers

import (
	"net/http"
)

type ConfigurationErrorResponse struct {
	Code         string   `json:"code"`
	Message      string   `json:"message"`
	Missing      []string `json:"missing"`
	Instructions []string `json:"instructions"`
}

// ConfigurationError serves a fixed 503 on every route while required settings are missing.
func ConfigurationError(missing []string) http.Handler {
	body := ConfigurationErrorResponse{
		Code:    "NOT_CONFIGURED",
		Message: "Supabase is not configured",
		Missing: missing,
		Instructions: []string{
			"Create a .env file next to the binary or export the variables.",
			"Set SUPABASE_URL and SUPABASE_ANON_KEY from Project Settings → API.",
			"Set DATABASE_URL to the project's Postgres connection string.",
			"Restart the server.",
		},
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, body)
	})
}

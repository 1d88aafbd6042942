package handlers

import (
	"net/http"

	"github.com/ali-azain/GlassFlow-CRM/internal/entity"
	"github.com/ali-azain/GlassFlow-CRM/internal/usecase"
)

type AuthHandler struct {
	Auth *usecase.AuthContext
}

func NewAuthHandler(auth *usecase.AuthContext) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse never exposes the tokens; the process keeps them.
type SessionResponse struct {
	Loading          bool         `json:"loading"`
	Authenticated    bool         `json:"authenticated"`
	User             *entity.User `json:"user,omitempty"`
	ConfirmationSent bool         `json:"confirmation_sent,omitempty"`
}

func sessionResponse(s *entity.Session) SessionResponse {
	if s == nil {
		return SessionResponse{}
	}
	u := s.User
	return SessionResponse{Authenticated: true, User: &u}
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s, err := h.Auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s))
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s, err := h.Auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	if s == nil {
		writeJSON(w, http.StatusAccepted, SessionResponse{ConfirmationSent: true})
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse(s))
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.Auth.SignOut(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	resp := sessionResponse(h.Auth.Current())
	resp.Loading = h.Auth.Loading()
	writeJSON(w, http.StatusOK, resp)
}

package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"priceoracle-service/internal/domain"
)

type credentialsRequest struct {
	Username   string  `json:"username"`
	Password   string  `json:"password"`
	OwnerEmail *string `json:"owner_email,omitempty"`
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type userProfile struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Email     *string `json:"email,omitempty"`
	CreatedAt string  `json:"created_at"`
}

type userListResponse struct {
	Users      []userProfile `json:"users"`
	TotalCount int           `json:"total_count"`
}

func toProfile(u domain.User) userProfile {
	return userProfile{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339)}
}

func toTokenResponse(t domain.APIToken) tokenResponse {
	return tokenResponse{Token: t.Token, ExpiresAt: t.ExpiresAt.UTC().Format(time.RFC3339)}
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	tok, err := s.users.Register(r.Context(), body.Username, body.Password, body.OwnerEmail)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, toTokenResponse(tok))
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	tok, err := s.users.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toTokenResponse(tok))
}

func (s *Server) Profile(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Profile(r.Context(), usernameFrom(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toProfile(u))
}

func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	resp := userListResponse{Users: make([]userProfile, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, toProfile(u))
	}
	resp.TotalCount = len(resp.Users)
	writeData(w, http.StatusOK, resp)
}

func (s *Server) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	var body deleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if err := s.users.Delete(r.Context(), usernameFrom(r.Context()), body.Password); err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "account deleted")
}

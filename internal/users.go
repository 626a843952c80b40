package internal

import (
	"net/http"
	"strings"

	"project-ledger-api/internal/auth"
	"project-ledger-api/internal/log"
	"project-ledger-api/internal/models"
)

// registerUser creates an identity. It does not sign the new user in.
func (s *Server) registerUser(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		auth.SendErrorResponse(w, "Invalid request body", "INVALID_JSON", http.StatusBadRequest)
		return
	}

	user, err := s.Identity.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusCreated, user)
}

// loginUser handles user authentication. The session travels in an HttpOnly cookie; clients
// that cannot keep cookies pass ?bearer=true to also receive the token in the body.
func (s *Server) loginUser(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		auth.SendErrorResponse(w, "Invalid request body", "INVALID_JSON", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		auth.SendErrorResponse(w, "Username and password are required", "VALIDATION_FAILED", http.StatusBadRequest)
		return
	}

	if !s.Limiter.Allow(clientIP(r)) {
		s.Metrics.RecordLogin("throttled")
		w.Header().Set("Retry-After", "60")
		auth.SendErrorResponse(w, "Too many login attempts", "RATE_LIMITED", http.StatusTooManyRequests)
		return
	}

	c := s.Registry.New()
	if err := c.Login(r.Context(), req.Username, req.Password); err != nil {
		s.Metrics.RecordLogin("failure")
		writeError(w, r, err)
		return
	}

	principal := c.Principal()
	sess, err := s.Sessions.Start(w, *principal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.Registry.Put(sess.ID, c, sess.ExpiresAt)
	s.Metrics.RecordLogin("success")
	log.FromContext(r.Context()).WithComponent(log.ComponentAuth).InfoContext(r.Context(), "login",
		log.FieldUsername, principal.Username,
		log.FieldSessionID, sess.ID,
	)

	resp := models.SessionResponse{User: *principal, ExpiresAt: sess.ExpiresAt}
	if r.URL.Query().Get("bearer") == "true" {
		resp.Token = sess.Token
	}
	auth.WriteJSON(w, http.StatusOK, resp)
}

// logoutUser ends the current session, if any. It always succeeds.
func (s *Server) logoutUser(w http.ResponseWriter, r *http.Request) {
	id := s.Sessions.End(w, r)
	if id != "" {
		if c, ok := s.Registry.Remove(id); ok {
			c.Logout()
		}
		log.FromContext(r.Context()).WithComponent(log.ComponentAuth).InfoContext(r.Context(), "logout",
			log.FieldSessionID, id,
		)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		auth.SendErrorResponse(w, "Authentication required", "AUTHENTICATION_REQUIRED", http.StatusUnauthorized)
		return
	}
	auth.WriteJSON(w, http.StatusOK, models.SessionResponse{User: sess.Principal, ExpiresAt: sess.ExpiresAt})
}

// usernameOf names the principal behind r for logs.
func usernameOf(r *http.Request) string {
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		return p.Username
	}
	return ""
}

package auth

import (
	"net/http"
	"strings"
	"time"

	"project-ledger-api/internal/log"
	"project-ledger-api/internal/models"

	"github.com/google/uuid"
)

// CookieName is the session cookie.
const CookieName = "ledger_session"

// Session is an authenticated browser or tool session.
type Session struct {
	ID        string
	Principal models.Principal
	ExpiresAt time.Time
	Token     string
}

// SessionManager issues, reads and ends sessions. The session lives in a signed token carried
// by an HttpOnly cookie or, for tools, a Bearer header.
type SessionManager struct {
	jwt     *JWTManager
	revoker Revoker
	secure  bool
	logger  *log.Logger
}

func NewSessionManager(jwt *JWTManager, revoker Revoker, secureCookie bool, logger *log.Logger) *SessionManager {
	if revoker == nil {
		revoker = NewMemoryRevoker()
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &SessionManager{jwt: jwt, revoker: revoker, secure: secureCookie, logger: logger.WithComponent(log.ComponentAuth)}
}

// Start issues a new session for p and sets the cookie.
func (m *SessionManager) Start(w http.ResponseWriter, p models.Principal) (Session, error) {
	id := uuid.NewString()
	token, expiresAt, err := m.jwt.GenerateToken(p, id)
	if err != nil {
		return Session{}, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return Session{ID: id, Principal: p, ExpiresAt: expiresAt, Token: token}, nil
}

// Current returns the live session carried by r. Missing, malformed, expired and revoked
// tokens all mean no session.
func (m *SessionManager) Current(r *http.Request) (Session, bool) {
	token := tokenFromRequest(r)
	if token == "" || validateTokenFormat(token) != nil {
		return Session{}, false
	}
	claims, err := m.jwt.ValidateToken(token)
	if err != nil {
		return Session{}, false
	}

	revoked, err := m.revoker.IsRevoked(r.Context(), claims.ID)
	if err != nil {
		m.logger.WarnContext(r.Context(), "revocation lookup failed", log.FieldSessionID, claims.ID, log.FieldError, err)
		return Session{}, false
	}
	if revoked {
		return Session{}, false
	}

	return Session{
		ID:        claims.ID,
		Principal: claims.Principal(),
		ExpiresAt: claims.ExpiresAt.Time,
		Token:     token,
	}, true
}

// End revokes the session carried by r, if any, and clears the cookie. It returns the ended
// session id, or "" when there was none. Calling it again is harmless.
func (m *SessionManager) End(w http.ResponseWriter, r *http.Request) string {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	s, ok := m.Current(r)
	if !ok {
		return ""
	}
	if err := m.revoker.Revoke(r.Context(), s.ID, s.ExpiresAt); err != nil {
		m.logger.ErrorContext(r.Context(), "revoke session failed", log.FieldSessionID, s.ID, log.FieldError, err)
	}
	return s.ID
}

func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/campus-market/internal/logger"
	"github.com/shinyyama/campus-market/internal/session"
)

const (
	UserIDKey    = "uid"
	SessionIDKey = "sid"
	LoginPath    = "/login"
)

type AuthMiddleware struct {
	sessions *session.Manager
	cookie   string
	secure   bool
}

func NewAuthMiddleware(sessions *session.Manager, cookieName string, secure bool) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions, cookie: cookieName, secure: secure}
}

// LoadSession resolves the session cookie, when present, into the request's user.
// Invalid or revoked cookies are cleared and the request continues anonymously.
// Store failures are returned to the error handler and leave the cookie alone.
func (m *AuthMiddleware) LoadSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ck, err := c.Cookie(m.cookie)
		if err != nil || ck.Value == "" {
			return next(c)
		}
		ctx := c.Request().Context()
		s, err := m.sessions.Resolve(ctx, ck.Value)
		if errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrInvalidToken) {
			m.clearCookie(c)
			return next(c)
		}
		if err != nil {
			// The cookie may still be valid once the store recovers.
			return fmt.Errorf("session lookup: %w", err)
		}
		m.bind(c, s.UserID, s.ID)
		return next(c)
	}
}

// RequireAuth sends anonymous visitors to the login page and back afterwards.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := UserID(c); !ok {
			return c.Redirect(http.StatusFound, LoginPath+"?next="+url.QueryEscape(c.Request().URL.RequestURI()))
		}
		return next(c)
	}
}

// Login starts a session for uid and sets the cookie on the response.
func (m *AuthMiddleware) Login(c echo.Context, uid uint64) error {
	token, s, err := m.sessions.Issue(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     m.cookie,
		Value:    token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		MaxAge:   int(m.sessions.TTL() / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	m.bind(c, uid, s.ID)
	return nil
}

// Logout revokes the current session, if any, and clears the cookie.
func (m *AuthMiddleware) Logout(c echo.Context) error {
	if sid, ok := c.Get(SessionIDKey).(string); ok && sid != "" {
		if err := m.sessions.Revoke(c.Request().Context(), sid); err != nil {
			return err
		}
	}
	m.clearCookie(c)
	c.Set(UserIDKey, nil)
	c.Set(SessionIDKey, nil)
	return nil
}

// RevokeOthers ends every other session of uid, keeping the one of this request.
func (m *AuthMiddleware) RevokeOthers(c echo.Context, uid uint64) error {
	sid, _ := c.Get(SessionIDKey).(string)
	return m.sessions.RevokeOthers(c.Request().Context(), uid, sid)
}

func (m *AuthMiddleware) bind(c echo.Context, uid uint64, sid string) {
	c.Set(UserIDKey, uid)
	c.Set(SessionIDKey, sid)
	req := c.Request()
	c.SetRequest(req.WithContext(logger.WithLogFields(req.Context(), logger.LogFields{UserID: logger.Ptr(uid)})))
}

func (m *AuthMiddleware) clearCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     m.cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// UserID returns the authenticated user of the request.
func UserID(c echo.Context) (uint64, bool) {
	uid, ok := c.Get(UserIDKey).(uint64)
	return uid, ok && uid != 0
}

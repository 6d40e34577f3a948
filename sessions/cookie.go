package sessions

import (
	"net/http"
	"strings"
)

// readCookieValue scans the raw Cookie header for name= among the
// semicolon-separated pairs and returns everything after the first '='.
// Sealed values may themselves contain '=', so the value must not be
// split further.
func readCookieValue(r *http.Request, name string) string {
	for _, header := range r.Header.Values("Cookie") {
		for _, part := range strings.Split(header, ";") {
			part = strings.TrimSpace(part)
			if value, ok := strings.CutPrefix(part, name+"="); ok {
				return value
			}
		}
	}
	return ""
}

// readCookieSession unseals the request's session cookie. A missing
// cookie, a cookie that fails to unseal, or one with no DID all yield nil:
// anonymous, not an error.
func (m *Manager) readCookieSession(r *http.Request) *cookieSession {
	value := readCookieValue(r, m.cookieName)
	if value == "" {
		return nil
	}

	var cs cookieSession
	if err := m.codec.Open(value, &cs); err != nil {
		return nil
	}
	if cs.DID == "" {
		return nil
	}
	return &cs
}

func (m *Manager) writeSessionCookie(w http.ResponseWriter, cs *cookieSession) error {
	sealed, err := m.codec.Seal(cs)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    sealed,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.sessionTTL.Seconds()),
	})
	return nil
}

func (m *Manager) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

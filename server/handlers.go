package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jrsteele09/go-atproto-sessions/sessions"
)

// LoginHandler starts the OAuth flow for the posted handle and redirects
// the browser to the authorization server.
func (s *Server) LoginHandler() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		opts := sessions.StartOAuthOptions{
			Mobile:        r.FormValue("mobile") == "true",
			CodeChallenge: r.FormValue("code_challenge"),
			RedirectPath:  r.FormValue("redirect_path"),
		}

		authURL, err := s.sessions.StartOAuth(r.Context(), r.FormValue("handle"), opts)
		if err != nil {
			var flowErr *sessions.OAuthFlowError
			if errors.As(err, &flowErr) {
				s.log.Warn().Err(err).Msg("Login rejected")
				http.Error(w, flowErr.Message, http.StatusBadRequest)
				return
			}
			s.log.Error().Err(err).Msg("Login failed")
			http.Error(w, "Login failed", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// CallbackHandler completes the OAuth flow. Error responses are produced
// by the session manager itself.
func (s *Server) CallbackHandler() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		s.sessions.HandleCallback(w, r)
	}
}

func (s *Server) LogoutHandler() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.sessions.Logout(r.Context(), w, r); err != nil {
			s.log.Error().Err(err).Msg("Logout failed")
			http.Error(w, "Logout failed", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// SessionHandler reports the current cookie session state. Anonymous
// requests get {"valid":false} with a 200, not an error.
func (s *Server) SessionHandler() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := s.sessions.ValidateSession(w, r)
		if err != nil {
			s.log.Error().Err(err).Msg("Session validation failed")
			http.Error(w, "Session validation failed", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) MobileSessionHandler() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := s.sessions.ValidateMobileSession(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			var mobileErr *sessions.MobileIntegrationError
			if errors.As(err, &mobileErr) {
				s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": mobileErr.Message})
				return
			}
			s.log.Error().Err(err).Msg("Mobile session validation failed")
			http.Error(w, "Session validation failed", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	}
}

// MobileRefreshHandler re-mints the mobile bearer token. The manager
// reports failures inside the result envelope, so the handler only maps
// the envelope to a status code.
func (s *Server) MobileRefreshHandler() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		result := s.sessions.RefreshMobileToken(r.Context(), r.Header.Get("Authorization"))
		status := http.StatusOK
		if !result.Success {
			status = http.StatusUnauthorized
		}
		s.writeJSON(w, status, result)
	}
}

// MeHandler returns the authenticated identity. RequireSession has
// already validated the cookie and populated the context.
func (s *Server) MeHandler() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		did, _ := r.Context().Value(ContextKeyDID).(string)
		handle, _ := r.Context().Value(ContextKeyHandle).(string)
		s.writeJSON(w, http.StatusOK, map[string]string{
			"did":    did,
			"handle": handle,
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}

package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-atproto-sessions/identity"
	"github.com/jrsteele09/go-atproto-sessions/oauthclient"
)

// StartOAuthOptions carries the optional parameters of StartOAuth.
type StartOAuthOptions struct {
	Mobile        bool
	CodeChallenge string
	RedirectPath  string
}

// StartOAuth validates handle syntax, builds the state payload, and asks
// the OAuth client for the authorization URL to redirect the user to.
// Adapter failures are wrapped in OAuthFlowError; no raw adapter error
// type escapes.
func (m *Manager) StartOAuth(ctx context.Context, handle string, opts StartOAuthOptions) (string, error) {
	if err := identity.ValidateHandle(handle); err != nil {
		return "", &OAuthFlowError{Message: fmt.Sprintf("invalid handle %q", handle), Err: err}
	}

	state := authState{
		Handle:    handle,
		Timestamp: m.nowTime().UnixMilli(),
	}
	if opts.Mobile {
		state.Mobile = true
		state.CodeChallenge = opts.CodeChallenge
	}
	if opts.RedirectPath != "" {
		if isSafeRedirectPath(opts.RedirectPath) {
			state.RedirectPath = opts.RedirectPath
		} else {
			m.log.Warn().Str("redirectPath", opts.RedirectPath).Msg("Dropping unsafe redirect path")
		}
	}

	rawState, err := json.Marshal(state)
	if err != nil {
		return "", &OAuthFlowError{Message: "failed to encode state", Err: err}
	}

	authURL, err := m.client.Authorize(ctx, handle, oauthclient.AuthorizeOptions{State: string(rawState)})
	if err != nil {
		return "", &OAuthFlowError{Message: "authorization request failed", Err: err}
	}
	return authURL, nil
}

// HandleCallback completes the OAuth flow on the provider's return leg.
// It is a boundary method: every internal failure becomes an HTTP 400
// response, never an error surfaced to the HTTP framework.
func (m *Manager) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if err := m.completeCallback(w, r); err != nil {
		m.log.Warn().Err(err).Msg("OAuth callback failed")
		http.Error(w, "OAuth callback failed: "+err.Error(), http.StatusBadRequest)
	}
}

func (m *Manager) completeCallback(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()
	code := query.Get("code")
	rawState := query.Get("state")
	if code == "" || rawState == "" {
		return &OAuthFlowError{Message: "Missing code or state parameters"}
	}

	var state authState
	if err := json.Unmarshal([]byte(rawState), &state); err != nil {
		return &OAuthFlowError{Message: "malformed state parameter", Err: err}
	}

	result, err := m.client.Callback(r.Context(), query)
	if err != nil {
		return &OAuthFlowError{Message: "callback exchange failed", Err: err}
	}
	if result == nil || result.Session == nil || result.Session.DID == "" {
		return &OAuthFlowError{Message: "callback returned no session"}
	}
	clientSession := result.Session

	now := m.nowTime()
	record := &StoredSession{
		DID:                 clientSession.DID,
		Handle:              clientSession.Handle,
		PDSURL:              clientSession.PDSURL,
		AccessToken:         clientSession.AccessToken,
		RefreshToken:        clientSession.RefreshToken,
		ExpiresAt:           clientSession.ExpiresAt,
		AuthServerIss:       clientSession.AuthServerIss,
		DPoPPrivateJWK:      clientSession.DPoPPrivateJWK,
		DPoPAuthServerNonce: clientSession.DPoPAuthServerNonce,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := m.putStoredSession(r.Context(), record); err != nil {
		return err
	}

	if err := m.writeSessionCookie(w, &cookieSession{DID: record.DID, CreatedAt: now, LastAccessed: now}); err != nil {
		return errors.Wrap(err, "[Manager.HandleCallback] session cookie")
	}

	if state.Mobile {
		return m.redirectMobile(w, r, record)
	}

	target := "/"
	if state.RedirectPath != "" && isSafeRedirectPath(state.RedirectPath) {
		target = state.RedirectPath
	}
	http.Redirect(w, r, m.baseURL+target, http.StatusSeeOther)
	return nil
}

func (m *Manager) redirectMobile(w http.ResponseWriter, r *http.Request, record *StoredSession) error {
	sessionToken, err := m.codec.Seal(mobileToken{DID: record.DID})
	if err != nil {
		return errors.Wrap(err, "[Manager.HandleCallback] mobile token")
	}

	params := url.Values{}
	params.Set("session_token", sessionToken)
	params.Set("did", record.DID)
	params.Set("handle", record.Handle)
	if record.AccessToken != "" {
		params.Set("access_token", record.AccessToken)
	}
	if record.RefreshToken != "" {
		params.Set("refresh_token", record.RefreshToken)
	}

	http.Redirect(w, r, m.mobileScheme+"?"+params.Encode(), http.StatusSeeOther)
	return nil
}

// isSafeRedirectPath accepts absolute in-site paths only: must start with
// "/" and must not start with "//" (protocol-relative open redirect).
func isSafeRedirectPath(path string) bool {
	return strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "//")
}

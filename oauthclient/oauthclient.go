// Package oauthclient defines the contract the session manager consumes
// from an AT Protocol OAuth client. The client owns the whole OAuth
// machinery (PAR, DPoP, token exchange, refresh); the manager only
// orchestrates around it.
package oauthclient

import (
	"context"
	"encoding/json"
	"net/url"
	"time"
)

// AuthorizeOptions carries optional parameters for Authorize. State is an
// opaque string the provider round-trips back to the callback unmodified.
type AuthorizeOptions struct {
	State string
}

// Session is the descriptor a client yields for an authenticated account.
// DPoP fields are opaque key material the client needs to replay requests;
// the manager persists them untouched.
type Session struct {
	DID                 string    `json:"did"`
	Handle              string    `json:"handle,omitempty"`
	PDSURL              string    `json:"pdsUrl,omitempty"`
	AccessToken         string    `json:"accessToken"`
	RefreshToken        string    `json:"refreshToken,omitempty"`
	ExpiresAt           time.Time `json:"expiresAt,omitzero"`
	AuthServerIss       string    `json:"authServerIss,omitempty"`
	DPoPPrivateJWK      string    `json:"dpopPrivateJwk,omitempty"`
	DPoPAuthServerNonce string    `json:"dpopAuthServerNonce,omitempty"`
}

// Serialize returns the session's persisted form.
func (s *Session) Serialize() ([]byte, error) {
	return json.Marshal(s)
}

// CallbackResult is what a client returns after completing the
// authorization-code exchange.
type CallbackResult struct {
	Session *Session
	State   string
}

// RefreshTokenData carries only the fields a refresh genuinely needs.
// It deliberately advertises no other capability.
type RefreshTokenData struct {
	DID          string
	AccessToken  string
	RefreshToken string
	Handle       string
	ExpiresAt    time.Time
}

// Client is the consumed OAuth client contract.
//
// Restore is expected to fail with the typed errors below rather than
// silently returning nil: callers distinguish "re-authenticate" from
// "transient, retry" by the error.
type Client interface {
	// Authorize starts an authorization flow for handle and returns the
	// URL the user agent should be redirected to.
	Authorize(ctx context.Context, handle string, opts AuthorizeOptions) (string, error)

	// Callback completes the flow with the provider's callback query
	// parameters and returns the established session.
	Callback(ctx context.Context, params url.Values) (*CallbackResult, error)

	// Restore returns a ready-to-use session for the DID, refreshing
	// internally if the client deems it necessary.
	Restore(ctx context.Context, did string) (*Session, error)
}

// Refresher is an optional client capability. Adapters that can refresh a
// token pair from minimal data implement it; the manager checks for it at
// the call site and degrades gracefully when absent.
type Refresher interface {
	Refresh(ctx context.Context, data RefreshTokenData) (*Session, error)
}

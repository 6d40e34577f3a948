// Package oidcclient is a reference oauthclient.Client for development
// against a standard OIDC/OAuth2 provider. It covers authorization-URL
// building, code exchange, and refresh, with token records kept in a
// storage.Store. DPoP and PAR are not implemented here; production
// deployments inject a real AT Protocol OAuth client instead.
package oidcclient

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-atproto-sessions/oauthclient"
	"github.com/jrsteele09/go-atproto-sessions/storage"
)

// clientKey prefixes the adapter's own token records so they never collide
// with the manager's session records.
func clientKey(did string) string { return "oidcclient:" + did }

type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

type Client struct {
	oauth2Config *oauth2.Config
	store        storage.Store
	nowTime      func() time.Time
}

var (
	_ oauthclient.Client    = (*Client)(nil)
	_ oauthclient.Refresher = (*Client)(nil)
)

// New discovers the provider's endpoints from its issuer URL.
func New(ctx context.Context, cfg Config, store storage.Store) (*Client, error) {
	if cfg.IssuerURL == "" {
		return nil, errors.New("[oidcclient.New] issuer URL is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("[oidcclient.New] client ID is required")
	}
	if store == nil {
		return nil, errors.New("[oidcclient.New] store is required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "[oidcclient.New] provider discovery")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", oidc.ScopeOfflineAccess}
	}

	return &Client{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		store:   store,
		nowTime: time.Now,
	}, nil
}

// Authorize builds the provider authorization URL. The handle travels as
// login_hint so the provider can pre-select the account.
func (c *Client) Authorize(_ context.Context, handle string, opts oauthclient.AuthorizeOptions) (string, error) {
	return c.oauth2Config.AuthCodeURL(opts.State,
		oauth2.SetAuthURLParam("login_hint", handle),
	), nil
}

// Callback exchanges the authorization code for tokens. The account DID is
// read from the ID token subject.
func (c *Client) Callback(ctx context.Context, params url.Values) (*oauthclient.CallbackResult, error) {
	code := params.Get("code")
	if code == "" {
		return nil, errors.Wrap(oauthclient.ErrTokenExchange, "missing code")
	}

	token, err := c.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(oauthclient.ErrTokenExchange, err.Error())
	}

	session := &oauthclient.Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}

	if rawIDToken, ok := token.Extra("id_token").(string); ok {
		claims := idTokenClaims(rawIDToken)
		session.DID = claims.Subject
		session.Handle = claims.Handle
	}
	if session.DID == "" {
		return nil, errors.Wrap(oauthclient.ErrTokenExchange, "no subject in token response")
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = accessTokenExpiry(token.AccessToken)
	}

	if err := c.saveSession(ctx, session); err != nil {
		return nil, err
	}
	return &oauthclient.CallbackResult{Session: session, State: params.Get("state")}, nil
}

// Restore loads the adapter's token record for did, refreshing through the
// provider when the access token has expired.
func (c *Client) Restore(ctx context.Context, did string) (*oauthclient.Session, error) {
	raw, err := c.store.Get(ctx, clientKey(did))
	if err != nil {
		return nil, errors.Wrap(oauthclient.ErrNetwork, err.Error())
	}
	if raw == nil {
		return nil, oauthclient.ErrSessionNotFound
	}

	var session oauthclient.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, errors.Wrap(err, "[Client.Restore] decode session")
	}

	if session.ExpiresAt.IsZero() || c.nowTime().Before(session.ExpiresAt) {
		return &session, nil
	}
	if session.RefreshToken == "" {
		return nil, oauthclient.ErrRefreshTokenExpired
	}

	return c.Refresh(ctx, oauthclient.RefreshTokenData{
		DID:          session.DID,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		Handle:       session.Handle,
		ExpiresAt:    session.ExpiresAt,
	})
}

// Refresh exchanges the refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, data oauthclient.RefreshTokenData) (*oauthclient.Session, error) {
	if data.RefreshToken == "" {
		return nil, oauthclient.ErrRefreshTokenExpired
	}

	src := c.oauth2Config.TokenSource(ctx, &oauth2.Token{
		RefreshToken: data.RefreshToken,
	})
	token, err := src.Token()
	if err != nil {
		return nil, errors.Wrap(oauthclient.ErrTokenExchange, err.Error())
	}

	session := &oauthclient.Session{
		DID:          data.DID,
		Handle:       data.Handle,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if session.RefreshToken == "" {
		session.RefreshToken = data.RefreshToken
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = accessTokenExpiry(token.AccessToken)
	}

	if err := c.saveSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (c *Client) saveSession(ctx context.Context, session *oauthclient.Session) error {
	raw, err := session.Serialize()
	if err != nil {
		return errors.Wrap(err, "[Client.saveSession] serialize")
	}
	if err := c.store.Set(ctx, clientKey(session.DID), raw, 0); err != nil {
		return errors.Wrap(err, "[Client.saveSession] persist")
	}
	return nil
}

type tokenClaims struct {
	Subject string
	Handle  string
}

// idTokenClaims reads sub and preferred_username without verifying the
// signature: the token arrived over the provider's TLS channel and this
// adapter is a development aid, not a verifier.
func idTokenClaims(rawToken string) tokenClaims {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return tokenClaims{}
	}

	out := tokenClaims{}
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if handle, ok := claims["preferred_username"].(string); ok {
		out.Handle = handle
	}
	return out
}

// accessTokenExpiry reads the exp claim from a JWT access token. Returns
// the zero time when the token is opaque or carries no expiry.
func accessTokenExpiry(rawToken string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// Package sessions bridges an AT Protocol OAuth flow to a web session
// cookie and an optional mobile bearer token. The Manager composes three
// injected collaborators: an OAuth client adapter, a key/value store, and
// the sealed token codec. It owns the session lifecycle — flow initiation,
// callback completion, validation with transparent refresh, and logout —
// but none of the OAuth machinery itself.
package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-atproto-sessions/oauthclient"
	"github.com/jrsteele09/go-atproto-sessions/seal"
	"github.com/jrsteele09/go-atproto-sessions/storage"
)

const (
	// DefaultCookieName names the session cookie when none is configured.
	DefaultCookieName = "sid"
	// DefaultSessionTTL is the cookie and stored-record lifetime.
	DefaultSessionTTL = 7 * 24 * time.Hour
	// DefaultMobileScheme receives the mobile callback redirect.
	DefaultMobileScheme = "app://auth-callback"

	// refreshSkew is how close to expiry a token may get before a
	// validation attempts a transparent refresh.
	refreshSkew = 5 * time.Minute
	// refreshLockTTL bounds the per-DID refresh lock lease.
	refreshLockTTL = 30 * time.Second
)

// Config carries the Manager's dependencies and settings. Client, Store,
// Secret and BaseURL are required; the rest default.
type Config struct {
	Client       oauthclient.Client
	Store        storage.Store
	Secret       string
	BaseURL      string
	CookieName   string
	SessionTTL   time.Duration
	MobileScheme string
	Logger       *zerolog.Logger
}

// Manager orchestrates the session lifecycle. All methods are safe for
// concurrent use; per-request state lives in the cookie and the store.
type Manager struct {
	client       oauthclient.Client
	store        storage.Store
	codec        *seal.Codec
	baseURL      string
	cookieName   string
	sessionTTL   time.Duration
	mobileScheme string
	log          zerolog.Logger
	nowTime      func() time.Time
}

// Option modifies a Manager during construction.
type Option func(*Manager)

// WithNowTime sets the clock (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// New validates cfg and builds a Manager. Every validation failure is a
// ConfigurationError; no partially constructed Manager is observable.
func New(cfg Config, options ...Option) (*Manager, error) {
	if cfg.Client == nil {
		return nil, &ConfigurationError{Reason: "OAuth client adapter is required"}
	}
	if cfg.Store == nil {
		return nil, &ConfigurationError{Reason: "storage adapter is required"}
	}
	if cfg.Secret == "" {
		return nil, &ConfigurationError{Reason: "signing secret is required"}
	}
	if len(cfg.Secret) < seal.MinSecretLength {
		return nil, &ConfigurationError{
			Reason: fmt.Sprintf("signing secret must be at least %d characters", seal.MinSecretLength),
		}
	}
	if cfg.BaseURL == "" {
		return nil, &ConfigurationError{Reason: "base URL is required"}
	}

	codec, err := seal.New(cfg.Secret)
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}

	m := &Manager{
		client:       cfg.Client,
		store:        cfg.Store,
		codec:        codec,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		cookieName:   cfg.CookieName,
		sessionTTL:   cfg.SessionTTL,
		mobileScheme: cfg.MobileScheme,
		log:          zerolog.Nop(),
		nowTime:      time.Now,
	}
	if m.cookieName == "" {
		m.cookieName = DefaultCookieName
	}
	if m.sessionTTL <= 0 {
		m.sessionTTL = DefaultSessionTTL
	}
	if m.mobileScheme == "" {
		m.mobileScheme = DefaultMobileScheme
	}
	if cfg.Logger != nil {
		m.log = *cfg.Logger
	}

	for _, opt := range options {
		opt(m)
	}

	return m, nil
}

// Logout deletes the stored OAuth session record for the cookie's DID (if
// any) and destroys the cookie. Calling it without a session is a no-op.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cs := m.readCookieSession(r)
	m.clearSessionCookie(w)

	if cs == nil {
		return nil
	}
	if err := m.store.Delete(ctx, storage.SessionKey(cs.DID)); err != nil {
		return &SessionError{Message: "failed to delete session record", Err: err}
	}
	return nil
}

// GetOAuthSession restores a ready-to-use OAuth session for did. Typed
// restore errors from the client pass through unchanged so callers can
// distinguish re-authenticate from transient-retry.
func (m *Manager) GetOAuthSession(ctx context.Context, did string) (*oauthclient.Session, error) {
	return m.client.Restore(ctx, did)
}

// GetOAuthSessionFromRequest is GetOAuthSession keyed by the request's
// session cookie. Returns (nil, nil) when no cookie session exists.
func (m *Manager) GetOAuthSessionFromRequest(ctx context.Context, r *http.Request) (*oauthclient.Session, error) {
	cs := m.readCookieSession(r)
	if cs == nil {
		return nil, nil
	}
	return m.client.Restore(ctx, cs.DID)
}

func (m *Manager) getStoredSession(ctx context.Context, did string) (*StoredSession, error) {
	raw, err := m.store.Get(ctx, storage.SessionKey(did))
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.getStoredSession] store get")
	}
	if raw == nil {
		return nil, nil
	}

	var record StoredSession
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, errors.Wrap(err, "[Manager.getStoredSession] decode record")
	}
	return &record, nil
}

func (m *Manager) putStoredSession(ctx context.Context, record *StoredSession) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "[Manager.putStoredSession] encode record")
	}
	if err := m.store.Set(ctx, storage.SessionKey(record.DID), raw, m.sessionTTL); err != nil {
		return errors.Wrap(err, "[Manager.putStoredSession] store set")
	}
	return nil
}

package sessions

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-atproto-sessions/oauthclient"
	"github.com/jrsteele09/go-atproto-sessions/storage"
)

// ValidateSession answers "is this request authenticated, with fresh
// tokens". The sequence:
//
//  1. Unseal the cookie; no DID means anonymous, {valid:false}.
//  2. Load the stored record; a missing record orphans the cookie, which
//     is destroyed before returning {valid:false}.
//  3. Touch lastAccessed and re-issue the cookie. This happens only once
//     the record is confirmed present, so the response never carries a
//     reissued cookie alongside a clearing header.
//  4. If the access token is near expiry and the client can refresh,
//     refresh transparently. A failed refresh is logged and swallowed:
//     the still-live token serves this request, the next validation
//     retries.
//
// Unexpected failures (storage, sealing) surface as SessionError, which
// callers must treat as "system failure", not "not logged in".
func (m *Manager) ValidateSession(w http.ResponseWriter, r *http.Request) (ValidationResult, error) {
	ctx := r.Context()

	value := readCookieValue(r, m.cookieName)
	if value == "" {
		return ValidationResult{}, nil
	}

	var cs cookieSession
	if err := m.codec.Open(value, &cs); err != nil || cs.DID == "" {
		// Tampered, truncated, or re-keyed cookie: anonymous, and the
		// cookie is cleared so it is not re-presented.
		m.clearSessionCookie(w)
		return ValidationResult{}, nil
	}

	record, err := m.getStoredSession(ctx, cs.DID)
	if err != nil {
		return ValidationResult{}, &SessionError{Message: "failed to load session record", Err: err}
	}
	if record == nil {
		// No backing token record: logged out elsewhere or expired.
		// Destroy the orphaned cookie so subsequent requests short-circuit.
		m.clearSessionCookie(w)
		return ValidationResult{}, nil
	}

	cs.LastAccessed = m.nowTime()
	if err := m.writeSessionCookie(w, &cs); err != nil {
		return ValidationResult{}, &SessionError{Message: "failed to reissue session cookie", Err: err}
	}

	if m.needsRefresh(record) {
		m.refreshStoredSession(ctx, record)
	}

	return ValidationResult{Valid: true, DID: record.DID, Handle: record.Handle}, nil
}

// needsRefresh reports whether the stored access token is within the
// refresh skew of its expiry. Records without an expiry or without a
// refresh token never trigger a refresh.
func (m *Manager) needsRefresh(record *StoredSession) bool {
	if record.ExpiresAt.IsZero() || record.RefreshToken == "" {
		return false
	}
	return !m.nowTime().Add(refreshSkew).Before(record.ExpiresAt)
}

// refreshStoredSession attempts a transparent token refresh and persists
// the new token pair. All failures are swallowed: availability wins over
// freshness while the current access token is still live.
//
// A best-effort per-DID lock in the store keeps concurrent validations
// from racing the same refresh token. The store contract has no
// compare-and-set, so the lock narrows the race window rather than
// closing it.
func (m *Manager) refreshStoredSession(ctx context.Context, record *StoredSession) {
	refresher, ok := m.client.(oauthclient.Refresher)
	if !ok {
		m.log.Debug().Str("did", record.DID).Msg("OAuth client has no refresh capability")
		return
	}

	lockKey := storage.RefreshLockKey(record.DID)
	if held, err := m.store.Get(ctx, lockKey); err == nil && held != nil {
		// Another request is already refreshing this DID; serve with the
		// tokens at hand.
		return
	}
	lease := uuid.New().String()
	if err := m.store.Set(ctx, lockKey, []byte(lease), refreshLockTTL); err != nil {
		m.log.Warn().Err(err).Str("did", record.DID).Msg("Failed to take refresh lock")
	}
	defer func() { _ = m.store.Delete(ctx, lockKey) }()

	session, err := refresher.Refresh(ctx, oauthclient.RefreshTokenData{
		DID:          record.DID,
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		Handle:       record.Handle,
		ExpiresAt:    record.ExpiresAt,
	})
	if err != nil || session == nil {
		m.log.Warn().Err(err).Str("did", record.DID).Msg("Token refresh failed")
		return
	}

	record.AccessToken = session.AccessToken
	if session.RefreshToken != "" {
		record.RefreshToken = session.RefreshToken
	}
	record.ExpiresAt = session.ExpiresAt
	record.UpdatedAt = m.nowTime()
	if err := m.putStoredSession(ctx, record); err != nil {
		m.log.Warn().Err(err).Str("did", record.DID).Msg("Failed to persist refreshed tokens")
	}
}

package sessions

import (
	"context"
	"strings"
)

// ValidateMobileSession validates an Authorization header carrying a
// sealed mobile bearer token. A structurally valid token whose DID has no
// stored record yields {valid:false}: the account was logged out
// elsewhere. No refresh happens here; RefreshMobileToken is the distinct
// refresh operation.
func (m *Manager) ValidateMobileSession(ctx context.Context, authHeader string) (ValidationResult, error) {
	did, err := m.didFromAuthHeader(authHeader)
	if err != nil {
		return ValidationResult{}, err
	}

	record, err := m.getStoredSession(ctx, did)
	if err != nil {
		return ValidationResult{}, &SessionError{Message: "failed to load session record", Err: err}
	}
	if record == nil {
		return ValidationResult{}, nil
	}

	return ValidationResult{Valid: true, DID: record.DID, Handle: record.Handle}, nil
}

// RefreshMobileToken re-mints the mobile bearer token, asking the OAuth
// client to restore (and internally refresh) the underlying session.
// Mobile callers expect a uniform result envelope, so every failure is
// reported in the envelope rather than returned as an error.
func (m *Manager) RefreshMobileToken(ctx context.Context, authHeader string) RefreshResult {
	did, err := m.didFromAuthHeader(authHeader)
	if err != nil {
		return RefreshResult{Error: "Token refresh failed: " + err.Error()}
	}

	record, err := m.getStoredSession(ctx, did)
	if err != nil {
		return RefreshResult{Error: "Token refresh failed: " + err.Error()}
	}
	if record == nil {
		return RefreshResult{Error: "OAuth session not found"}
	}

	// Tokens are managed server-side; the mobile token only re-seals the
	// DID pointer. A failed restore therefore still yields a fresh token,
	// with the refresh retried on a later call.
	if _, err := m.client.Restore(ctx, did); err != nil {
		m.log.Warn().Err(err).Str("did", did).Msg("OAuth restore failed during mobile token refresh")
	}

	sessionToken, err := m.codec.Seal(mobileToken{DID: did})
	if err != nil {
		return RefreshResult{Error: "Token refresh failed: " + err.Error()}
	}

	return RefreshResult{Success: true, Payload: &RefreshPayload{DID: did, SID: sessionToken}}
}

func (m *Manager) didFromAuthHeader(header string) (string, error) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", &MobileIntegrationError{Message: "Invalid authorization header"}
	}

	var mt mobileToken
	if err := m.codec.Open(token, &mt); err != nil || mt.DID == "" {
		return "", &MobileIntegrationError{Message: "Invalid session token"}
	}
	return mt.DID, nil
}

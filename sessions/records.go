package sessions

import "time"

// cookieSession is the record sealed inside the browser cookie. A record
// with no DID is treated as anonymous.
type cookieSession struct {
	DID          string    `json:"did"`
	CreatedAt    time.Time `json:"createdAt"`
	LastAccessed time.Time `json:"lastAccessed"`
}

// mobileToken is the record sealed into the mobile bearer token. It is a
// pointer to the stored record, nothing more: tokens stay server-side.
type mobileToken struct {
	DID string `json:"did"`
}

// StoredSession is the OAuth session record persisted under
// "session:{did}". Its existence is the source of truth for "is this DID
// authenticated": absence invalidates any cookie or mobile token that
// references the DID, however cryptographically valid.
type StoredSession struct {
	DID                 string    `json:"did"`
	Handle              string    `json:"handle,omitempty"`
	PDSURL              string    `json:"pdsUrl,omitempty"`
	AccessToken         string    `json:"accessToken"`
	RefreshToken        string    `json:"refreshToken,omitempty"`
	ExpiresAt           time.Time `json:"expiresAt,omitzero"`
	AuthServerIss       string    `json:"authServerIss,omitempty"`
	DPoPPrivateJWK      string    `json:"dpopPrivateJwk,omitempty"`
	DPoPAuthServerNonce string    `json:"dpopAuthServerNonce,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// authState is the transient payload round-tripped through the OAuth
// provider as the state parameter. It is never persisted server-side and
// carries no signature of its own; see DESIGN.md on the trust boundary.
type authState struct {
	Handle        string `json:"handle"`
	Timestamp     int64  `json:"timestamp"` // ms epoch
	Mobile        bool   `json:"mobile,omitempty"`
	CodeChallenge string `json:"codeChallenge,omitempty"`
	RedirectPath  string `json:"redirectPath,omitempty"`
}

// ValidationResult reports the outcome of a session validation. Valid
// false is the ordinary "not logged in" answer, not an error.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	DID    string `json:"did,omitempty"`
	Handle string `json:"handle,omitempty"`
}

// RefreshPayload carries the re-minted mobile token.
type RefreshPayload struct {
	DID string `json:"did"`
	SID string `json:"sid"`
}

// RefreshResult is the uniform envelope mobile callers receive; failures
// are reported in Error rather than raised.
type RefreshResult struct {
	Success bool            `json:"success"`
	Payload *RefreshPayload `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

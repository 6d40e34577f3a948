package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-atproto-sessions/oauthclient"
	"github.com/jrsteele09/go-atproto-sessions/oauthclient/clientfakes"
	"github.com/jrsteele09/go-atproto-sessions/seal"
	"github.com/jrsteele09/go-atproto-sessions/server"
	"github.com/jrsteele09/go-atproto-sessions/sessions"
	"github.com/jrsteele09/go-atproto-sessions/storage"
	"github.com/jrsteele09/go-atproto-sessions/storage/memstore"
)

const (
	testSecret  = "0123456789abcdef0123456789abcdef"
	testBaseURL = "https://app.example.com"
	testDID     = "did:plc:z72i7hdynmk6r22z27h6tvur"
	testHandle  = "alice.bsky.social"
)

// testConfig satisfies config.Config with fixed values; env vars play no
// part in these tests.
type testConfig struct{}

func (testConfig) GetPort() string              { return ":0" }
func (testConfig) GetAppName() string           { return "test" }
func (testConfig) GetDataFolder() string        { return "" }
func (testConfig) GetBaseURL() string           { return testBaseURL }
func (testConfig) GetEnv() string               { return "TEST" }
func (testConfig) GetCookieName() string        { return "" }
func (testConfig) GetCookieSecret() string      { return testSecret }
func (testConfig) GetSessionTTL() time.Duration { return 0 }
func (testConfig) GetMobileScheme() string      { return "" }
func (testConfig) GetOIDCIssuerURL() string     { return "" }
func (testConfig) GetOIDCClientID() string      { return "" }
func (testConfig) GetOIDCClientSecret() string  { return "" }
func (testConfig) GetOIDCRedirectURL() string   { return "" }

type serverFixture struct {
	t      *testing.T
	client *clientfakes.FakeClient
	store  *memstore.Store
	codec  *seal.Codec
	server *server.Server
}

func setupServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	client := &clientfakes.FakeClient{}
	store := memstore.New()

	srv, err := server.New(testConfig{}, client, store, zerolog.Nop())
	require.NoError(t, err)

	codec, err := seal.New(testSecret)
	require.NoError(t, err)

	return &serverFixture{t: t, client: client, store: store, codec: codec, server: srv}
}

func (f *serverFixture) sealCookie(did string) string {
	f.t.Helper()
	token, err := f.codec.Seal(map[string]any{
		"did":          did,
		"createdAt":    time.Now(),
		"lastAccessed": time.Now(),
	})
	require.NoError(f.t, err)
	return token
}

func (f *serverFixture) putRecord(record *sessions.StoredSession) {
	f.t.Helper()
	raw, err := json.Marshal(record)
	require.NoError(f.t, err)
	require.NoError(f.t, f.store.Set(context.Background(), storage.SessionKey(record.DID), raw, 0))
}

func (f *serverFixture) do(r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, r)
	return w
}

func TestLoginRedirectsToAuthorizationServer(t *testing.T) {
	f := setupServerFixture(t)
	f.client.AuthorizeStub = func(context.Context, string, oauthclient.AuthorizeOptions) (string, error) {
		return "https://pds.example.com/oauth/authorize?client_id=web", nil
	}

	form := url.Values{"handle": {testHandle}}
	r := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := f.do(r)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "https://pds.example.com/oauth/authorize?client_id=web", w.Header().Get("Location"))
}

func TestLoginRejectsInvalidHandle(t *testing.T) {
	f := setupServerFixture(t)

	form := url.Values{"handle": {"not a handle"}}
	r := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := f.do(r)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, f.client.AuthorizeCalls())
}

func TestCallbackEstablishesSession(t *testing.T) {
	f := setupServerFixture(t)
	f.client.CallbackStub = func(context.Context, url.Values) (*oauthclient.CallbackResult, error) {
		return &oauthclient.CallbackResult{Session: &oauthclient.Session{
			DID:         testDID,
			Handle:      testHandle,
			AccessToken: "access-token-1",
		}}, nil
	}

	state := `{"handle":"` + testHandle + `","timestamp":1}`
	r := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state="+url.QueryEscape(state), nil)

	w := f.do(r)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, testBaseURL+"/", w.Header().Get("Location"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "sid", cookies[0].Name)

	raw, err := f.store.Get(context.Background(), storage.SessionKey(testDID))
	require.NoError(t, err)
	require.NotNil(t, raw)
}

func TestCallbackMissingParamsIsBadRequest(t *testing.T) {
	f := setupServerFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/auth/callback", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Missing code or state parameters")
}

func TestSessionEndpointAnonymous(t *testing.T) {
	f := setupServerFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/auth/session", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var result sessions.ValidationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.False(t, result.Valid)
}

func TestSessionEndpointAuthenticated(t *testing.T) {
	f := setupServerFixture(t)
	f.putRecord(&sessions.StoredSession{DID: testDID, Handle: testHandle, AccessToken: "access-token-1"})

	r := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	r.AddCookie(&http.Cookie{Name: "sid", Value: f.sealCookie(testDID)})

	w := f.do(r)
	require.Equal(t, http.StatusOK, w.Code)

	var result sessions.ValidationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.True(t, result.Valid)
	require.Equal(t, testDID, result.DID)
	require.Equal(t, testHandle, result.Handle)
}

func TestLogoutClearsCookieAndRecord(t *testing.T) {
	f := setupServerFixture(t)
	f.putRecord(&sessions.StoredSession{DID: testDID, AccessToken: "access-token-1"})

	r := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	r.AddCookie(&http.Cookie{Name: "sid", Value: f.sealCookie(testDID)})

	w := f.do(r)
	require.Equal(t, http.StatusSeeOther, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Less(t, cookies[0].MaxAge, 0)

	raw, err := f.store.Get(context.Background(), storage.SessionKey(testDID))
	require.NoError(t, err)
	require.Nil(t, raw)
}

func TestMeRequiresSession(t *testing.T) {
	f := setupServerFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/me", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeReturnsIdentity(t *testing.T) {
	f := setupServerFixture(t)
	f.putRecord(&sessions.StoredSession{DID: testDID, Handle: testHandle, AccessToken: "access-token-1"})

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.AddCookie(&http.Cookie{Name: "sid", Value: f.sealCookie(testDID)})

	w := f.do(r)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, testDID, body["did"])
	require.Equal(t, testHandle, body["handle"])
}

func TestMobileSessionRejectsMissingHeader(t *testing.T) {
	f := setupServerFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/auth/mobile/session", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "Invalid authorization header")
}

func TestMobileSessionValid(t *testing.T) {
	f := setupServerFixture(t)
	f.putRecord(&sessions.StoredSession{DID: testDID, Handle: testHandle, AccessToken: "access-token-1"})

	token, err := f.codec.Seal(map[string]string{"did": testDID})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/auth/mobile/session", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	w := f.do(r)
	require.Equal(t, http.StatusOK, w.Code)

	var result sessions.ValidationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.True(t, result.Valid)
	require.Equal(t, testDID, result.DID)
}

func TestMobileRefreshEnvelope(t *testing.T) {
	f := setupServerFixture(t)
	f.putRecord(&sessions.StoredSession{DID: testDID, AccessToken: "access-token-1"})
	f.client.RestoreStub = func(_ context.Context, did string) (*oauthclient.Session, error) {
		return &oauthclient.Session{DID: did}, nil
	}

	token, err := f.codec.Seal(map[string]string{"did": testDID})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/auth/mobile/refresh", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	w := f.do(r)
	require.Equal(t, http.StatusOK, w.Code)

	var result sessions.RefreshResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.True(t, result.Success)
	require.NotNil(t, result.Payload)
	require.Equal(t, testDID, result.Payload.DID)
	require.NotEmpty(t, result.Payload.SID)
}

func TestMobileRefreshRejectsBadHeader(t *testing.T) {
	f := setupServerFixture(t)

	r := httptest.NewRequest(http.MethodPost, "/auth/mobile/refresh", nil)
	r.Header.Set("Authorization", "Basic xyz")

	w := f.do(r)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var result sessions.RefreshResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.False(t, result.Success)
	require.Equal(t, "Token refresh failed: Invalid authorization header", result.Error)
}

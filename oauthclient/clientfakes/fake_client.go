package clientfakes

import (
	"context"
	"net/url"
	"sync"

	"github.com/jrsteele09/go-atproto-sessions/oauthclient"
)

// FakeClient is a hand-rolled oauthclient.Client for tests. Behaviour is
// driven by the exported stub fields; calls are recorded under lock.
type FakeClient struct {
	AuthorizeStub func(ctx context.Context, handle string, opts oauthclient.AuthorizeOptions) (string, error)
	CallbackStub  func(ctx context.Context, params url.Values) (*oauthclient.CallbackResult, error)
	RestoreStub   func(ctx context.Context, did string) (*oauthclient.Session, error)

	lock           sync.RWMutex
	authorizeCalls []AuthorizeCall
	restoreCalls   []string
}

type AuthorizeCall struct {
	Handle string
	Opts   oauthclient.AuthorizeOptions
}

var _ oauthclient.Client = (*FakeClient)(nil)

func (f *FakeClient) Authorize(ctx context.Context, handle string, opts oauthclient.AuthorizeOptions) (string, error) {
	f.lock.Lock()
	f.authorizeCalls = append(f.authorizeCalls, AuthorizeCall{Handle: handle, Opts: opts})
	f.lock.Unlock()

	if f.AuthorizeStub != nil {
		return f.AuthorizeStub(ctx, handle, opts)
	}
	return "https://pds.example.com/oauth/authorize?client_id=test", nil
}

func (f *FakeClient) Callback(ctx context.Context, params url.Values) (*oauthclient.CallbackResult, error) {
	if f.CallbackStub != nil {
		return f.CallbackStub(ctx, params)
	}
	return nil, oauthclient.ErrTokenExchange
}

func (f *FakeClient) Restore(ctx context.Context, did string) (*oauthclient.Session, error) {
	f.lock.Lock()
	f.restoreCalls = append(f.restoreCalls, did)
	f.lock.Unlock()

	if f.RestoreStub != nil {
		return f.RestoreStub(ctx, did)
	}
	return nil, oauthclient.ErrSessionNotFound
}

func (f *FakeClient) AuthorizeCalls() []AuthorizeCall {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return append([]AuthorizeCall(nil), f.authorizeCalls...)
}

func (f *FakeClient) RestoreCalls() []string {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return append([]string(nil), f.restoreCalls...)
}

// FakeRefreshingClient additionally implements oauthclient.Refresher.
type FakeRefreshingClient struct {
	FakeClient

	RefreshStub func(ctx context.Context, data oauthclient.RefreshTokenData) (*oauthclient.Session, error)

	refreshLock  sync.RWMutex
	refreshCalls []oauthclient.RefreshTokenData
}

var _ oauthclient.Refresher = (*FakeRefreshingClient)(nil)

func (f *FakeRefreshingClient) Refresh(ctx context.Context, data oauthclient.RefreshTokenData) (*oauthclient.Session, error) {
	f.refreshLock.Lock()
	f.refreshCalls = append(f.refreshCalls, data)
	f.refreshLock.Unlock()

	if f.RefreshStub != nil {
		return f.RefreshStub(ctx, data)
	}
	return nil, oauthclient.ErrRefreshNotSupported
}

func (f *FakeRefreshingClient) RefreshCalls() []oauthclient.RefreshTokenData {
	f.refreshLock.RLock()
	defer f.refreshLock.RUnlock()
	return append([]oauthclient.RefreshTokenData(nil), f.refreshCalls...)
}

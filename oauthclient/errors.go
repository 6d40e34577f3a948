package oauthclient

import "errors"

// Typed restore failures. The manager propagates these unchanged so the
// calling application can tell re-auth-required apart from transient
// failures.
var (
	ErrSessionNotFound     = errors.New("oauth session not found")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
	ErrNetwork             = errors.New("network failure")
	ErrTokenExchange       = errors.New("token exchange failed")
	ErrRefreshNotSupported = errors.New("client does not support refresh")
)

package config

import "time"

type Config interface {
	EnvConfig
	SessionConfig
	OIDCConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetBaseURL() string
	GetEnv() string
}

type SessionConfig interface {
	GetCookieName() string
	GetCookieSecret() string
	GetSessionTTL() time.Duration
	GetMobileScheme() string
}

// OIDCConfig configures the bundled development OAuth client adapter.
// Deployments injecting their own oauthclient.Client ignore these.
type OIDCConfig interface {
	GetOIDCIssuerURL() string
	GetOIDCClientID() string
	GetOIDCClientSecret() string
	GetOIDCRedirectURL() string
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	portEnvVar   = "PORT"
	appNameVar   = "APP_NAME"
	folderEnvVar = "FOLDER"
	baseURLVar   = "BASE_URL"
)

type EnvVars struct{}

var _ Config = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "ATProto Sessions")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetBaseURL returns the public base URL of this service, used for
// post-login redirects (e.g. "https://app.example.com").
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

func (EnvVars) GetCookieName() string {
	return GetEnv("COOKIE_NAME", "")
}

// GetCookieSecret returns the sealing secret for cookies and mobile
// tokens. It must be at least 32 characters; there is no usable default.
func (EnvVars) GetCookieSecret() string {
	return GetEnv("COOKIE_SECRET", "")
}

func (EnvVars) GetSessionTTL() time.Duration {
	raw := GetEnv("SESSION_TTL_SECONDS", "")
	if raw == "" {
		return 0 // session manager applies its default
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func (EnvVars) GetMobileScheme() string {
	return GetEnv("MOBILE_SCHEME", "")
}

func (EnvVars) GetOIDCIssuerURL() string {
	return GetEnv("OIDC_ISSUER_URL", "")
}

func (EnvVars) GetOIDCClientID() string {
	return GetEnv("OIDC_CLIENT_ID", "")
}

func (EnvVars) GetOIDCClientSecret() string {
	return GetEnv("OIDC_CLIENT_SECRET", "")
}

func (EnvVars) GetOIDCRedirectURL() string {
	return GetEnv("OIDC_REDIRECT_URL", "")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

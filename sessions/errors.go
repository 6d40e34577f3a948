package sessions

// Error codes carried by the typed errors below. Codes are stable,
// machine-readable identifiers; messages are for humans.
const (
	CodeConfigurationError     = "configuration_error"
	CodeOAuthFlowError         = "oauth_flow_error"
	CodeSessionError           = "session_error"
	CodeMobileIntegrationError = "mobile_integration_error"
)

// ConfigurationError reports invalid or missing construction parameters.
// It is always synchronous and always fatal to construction.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "configuration error: " + e.Reason }
func (e *ConfigurationError) Code() string  { return CodeConfigurationError }

// OAuthFlowError reports handle-validation failures, malformed or missing
// callback parameters, and adapter authorize/callback failures. No raw
// adapter error type escapes the manager's flow methods.
type OAuthFlowError struct {
	Message string
	Err     error
}

func (e *OAuthFlowError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}
func (e *OAuthFlowError) Unwrap() error { return e.Err }
func (e *OAuthFlowError) Code() string  { return CodeOAuthFlowError }

// SessionError reports an unexpected failure during cookie validation or
// logout. It is distinct from the non-exceptional "no session" outcome so
// callers can tell "not logged in" from "system failure".
type SessionError struct {
	Message string
	Err     error
}

func (e *SessionError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}
func (e *SessionError) Unwrap() error { return e.Err }
func (e *SessionError) Code() string  { return CodeSessionError }

// MobileIntegrationError reports a malformed Authorization header or an
// unsealable mobile token. Messages surface verbatim in mobile result
// envelopes.
type MobileIntegrationError struct {
	Message string
}

func (e *MobileIntegrationError) Error() string { return e.Message }
func (e *MobileIntegrationError) Code() string  { return CodeMobileIntegrationError }

// Package oauth implements the token broker used by every tokenrelay route.
//
// A Broker owns one OAuth2 client credential set and performs the
// client-credentials or authorization-code exchange against an
// authorization server. The exchange is a POST to {url}/oauth/token with the
// grant parameters in the query string and HTTP Basic client authentication.
//
// # State
//
// A broker is in one of four derived states:
//
//   - unauthorized: no exchange has completed
//   - pending: an exchange is in flight and nothing is recorded yet
//   - success: an access token is held
//   - error: the last exchange failed; the failure is kept as LastError
//
// A token and an error are never held at the same time. There is no automatic
// refresh: every exchange is triggered by the caller, either at startup or
// when an authorization code arrives on the callback endpoint.
//
// # Errors
//
// Failures are typed so callers can branch with errors.As:
// ConfigurationError, AuthorizationError, TransportError, TimeoutError,
// NotAuthorizedError and TokenError. ErrMissingCode, ErrNoBearerToken and
// ErrNoAccessToken are sentinels.
//
// # Tokens in logs
//
// Access tokens are only rendered through RedactedToken.
package oauth

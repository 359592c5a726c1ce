package oauth

import (
	"fmt"

	"tokenrelay/internal/config"
)

// GrantType selects the OAuth2 flow a broker uses.
type GrantType string

const (
	ClientCredentials GrantType = config.GrantTypeClientCredentials
	AuthorizationCode GrantType = config.GrantTypeAuthorizationCode
)

// ParseGrantType maps a configuration value to a GrantType. An empty value
// selects ClientCredentials.
func ParseGrantType(s string) (GrantType, error) {
	switch GrantType(s) {
	case "", ClientCredentials:
		return ClientCredentials, nil
	case AuthorizationCode:
		return AuthorizationCode, nil
	default:
		return "", NewConfigurationError("grantType", "unsupported grant type %q", s)
	}
}

// wireValue is the grant_type query value sent to the token endpoint.
func (g GrantType) wireValue() string {
	switch g {
	case ClientCredentials:
		return "client_credentials"
	case AuthorizationCode:
		return "authorization_code"
	default:
		return ""
	}
}

func (g GrantType) String() string { return string(g) }

// State is the authorization state of a broker or destination binding.
type State int

const (
	StateUnauthorized State = iota
	StatePending
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateUnauthorized:
		return "unauthorized"
	case StatePending:
		return "pending"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state as its lowercase name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DeriveState computes a State from the mutable fields shared by brokers and
// destination bindings. Stored results take precedence over in-flight work,
// so a re-authorization keeps reporting the previous outcome until it lands.
func DeriveState(inflight int, hasToken bool, lastErr error) State {
	switch {
	case lastErr != nil:
		return StateError
	case hasToken:
		return StateSuccess
	case inflight > 0:
		return StatePending
	default:
		return StateUnauthorized
	}
}

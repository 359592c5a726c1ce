package oauth

import "log/slog"

const redacted = "[REDACTED]"

// RedactedToken is an access token that never renders its value. It is safe
// to pass to fmt verbs, slog attributes and JSON encoders.
type RedactedToken string

// NewRedactedToken wraps value.
func NewRedactedToken(value string) RedactedToken {
	return RedactedToken(value)
}

// Value returns the raw token. Only call it to build an outbound header.
func (t RedactedToken) Value() string {
	return string(t)
}

// String renders "[REDACTED]", or "<none>" for an empty token so log lines
// still tell whether a token was present.
func (t RedactedToken) String() string {
	if t == "" {
		return "<none>"
	}
	return redacted
}

// GoString covers %#v.
func (t RedactedToken) GoString() string {
	return "oauth.RedactedToken(" + t.String() + ")"
}

// MarshalText covers encoding/json and YAML encoders.
func (t RedactedToken) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// LogValue implements slog.LogValuer.
func (t RedactedToken) LogValue() slog.Value {
	return slog.StringValue(t.String())
}

package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

var (
	validGrantTypes = []string{GrantTypeClientCredentials, GrantTypeAuthorizationCode}
	validLogLevels  = []string{"debug", "info", "warn", "warning", "error"}
	validLogFormats = []string{"text", "json"}
)

// Validate checks the settings that would make the whole process unusable.
// Routes missing a path or a service/destination are not rejected here; the
// route registry skips them individually so the remaining routes keep working.
func (c Config) Validate() error {
	var errs ValidationErrors

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs.Add("server.port", "must be between 0 and 65535", c.Server.Port)
	}
	if c.Server.ReadHeaderTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		errs.Add("server", "timeouts must not be negative")
	}
	if c.Timeouts.Token < 0 || c.Timeouts.Upstream < 0 {
		errs.Add("timeouts", "timeouts must not be negative")
	}
	if !strings.HasPrefix(c.AuthorizationCodePath, "/") {
		errs.Add("authorizationCodePath", "must be an absolute path", c.AuthorizationCodePath)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs.Add("metrics.path", "must be an absolute path", c.Metrics.Path)
	}
	if err := ValidateOneOf("logging.level", strings.ToLower(c.Logging.Level), validLogLevels); err != nil {
		errs = append(errs, err.(ValidationError))
	}
	if err := ValidateOneOf("logging.format", c.Logging.Format, validLogFormats); err != nil {
		errs = append(errs, err.(ValidationError))
	}

	for i, route := range c.Routes {
		field := fmt.Sprintf("routes[%d].grantType", i)
		if err := ValidateOneOf(field, route.EffectiveGrantType(), validGrantTypes); err != nil {
			errs = append(errs, err.(ValidationError))
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

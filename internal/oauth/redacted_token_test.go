package oauth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestRedactedToken_Formatting(t *testing.T) {
	token := NewRedactedToken("super-secret-token-12345")

	tests := []struct {
		name   string
		output string
	}{
		{"String", token.String()},
		{"%s", fmt.Sprintf("%s", token)},
		{"%v", fmt.Sprintf("%v", token)},
		{"%#v", fmt.Sprintf("%#v", token)},
		{"error", fmt.Errorf("failed with token: %s", token).Error()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if strings.Contains(tc.output, "super-secret") {
				t.Errorf("token leaked: %s", tc.output)
			}
			if !strings.Contains(tc.output, "[REDACTED]") {
				t.Errorf("expected [REDACTED] in %q", tc.output)
			}
		})
	}

	if token.Value() != "super-secret-token-12345" {
		t.Errorf("Value() = %q", token.Value())
	}
}

func TestRedactedToken_Empty(t *testing.T) {
	if got := NewRedactedToken("").String(); got != "<none>" {
		t.Errorf("expected <none>, got %s", got)
	}
}

func TestRedactedToken_InStruct(t *testing.T) {
	type request struct {
		Token RedactedToken `json:"token"`
		Name  string        `json:"name"`
	}

	data, err := json.Marshal(request{Token: "secret-token", Name: "test"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := `{"token":"[REDACTED]","name":"test"}`
	if string(data) != expected {
		t.Errorf("Expected %s, got %s", expected, string(data))
	}
}

func TestRedactedToken_Slog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("authorized", "token", NewRedactedToken("secret-value"))

	if strings.Contains(buf.String(), "secret-value") {
		t.Errorf("token leaked in log output: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "[REDACTED]") {
		t.Errorf("expected redacted attribute, got %s", buf.String())
	}
}

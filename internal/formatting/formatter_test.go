package formatting

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"tokenrelay/pkg/auth"
)

var sampleStatus = []auth.RouteStatus{
	{ID: 0, Name: "/api", Service: "com.example.api", Endpoint: "https://api.example.com", Status: auth.StatusSuccess},
	{ID: 1, Name: "/dest", Destination: "BACKEND", Status: auth.StatusError, Error: "Destination service failure: 404\nnot found"},
	{ID: 2, Name: "/manual", Service: "com.example.ui", Status: auth.StatusUnauthorized, Manual: true, URL: "https://auth.example.com/oauth/authorize?client_id=ui&response_type=code"},
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseFormat(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWriteStatus_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStatus(&buf, sampleStatus, Options{Format: FormatTable, NoColor: true}))

	out := buf.String()
	assert.Contains(t, out, "PATH")
	assert.Contains(t, out, "service:com.example.api")
	assert.Contains(t, out, "destination:BACKEND")
	assert.Contains(t, out, "Destination service failure: 404 not found", "error text is collapsed onto one line")
	assert.Contains(t, out, "3 routes, 1 failed")
	assert.Contains(t, out, "Authorize route 2 at https://auth.example.com/oauth/authorize")
	assert.NotContains(t, out, "\x1b[", "no ANSI escapes with NoColor")
}

func TestWriteStatus_TableEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStatus(&buf, nil, Options{NoColor: true}))
	assert.Equal(t, "No routes configured\n", buf.String())
}

func TestWriteStatus_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStatus(&buf, sampleStatus, Options{Format: FormatJSON}))

	var decoded []auth.RouteStatus
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, sampleStatus, decoded)
}

func TestWriteStatus_JSONEmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStatus(&buf, nil, Options{Format: FormatJSON}))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestWriteStatus_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStatus(&buf, sampleStatus[:1], Options{Format: FormatYAML}))

	var decoded []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "/api", decoded[0]["name"])
}

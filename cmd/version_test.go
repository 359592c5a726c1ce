package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	original := rootCmd.Version
	defer func() { rootCmd.Version = original }()

	tests := []struct {
		version string
		want    string
	}{
		{"1.2.3-test", "tokenrelay version 1.2.3-test\n"},
		{"", "tokenrelay version \n"},
	}

	for _, tc := range tests {
		rootCmd.Version = tc.version

		versionCmd := newVersionCmd()
		var buf bytes.Buffer
		versionCmd.SetOut(&buf)
		versionCmd.Run(versionCmd, nil)

		assert.Equal(t, tc.want, buf.String())
	}
}

func TestVersionCommandHelp(t *testing.T) {
	versionCmd := newVersionCmd()
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.SetErr(&buf)
	versionCmd.SetArgs([]string{"--help"})

	require.NoError(t, versionCmd.Execute())
	assert.Contains(t, buf.String(), "All software has versions")
}

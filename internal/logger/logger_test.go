package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected log.Level
	}{
		{input: "debug", expected: log.DebugLevel},
		{input: "WARN", expected: log.WarnLevel},
		{input: " error ", expected: log.ErrorLevel},
		{input: "", expected: log.InfoLevel},
		{input: "verbose", expected: log.InfoLevel},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, ParseLevel(tc.input), tc.input)
	}
}

func TestConfigure(t *testing.T) {
	previous := Logger
	defer func() { Logger = previous }()

	file := filepath.Join(t.TempDir(), "wtr.log")
	require.NoError(t, Configure("debug", file))
	assert.Equal(t, log.DebugLevel, Logger.GetLevel())

	Logger.Debug("session started", "session", "s-1")
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "session started")
	assert.Contains(t, string(data), "s-1")
}

func TestOr(t *testing.T) {
	custom := Discard()
	assert.Same(t, custom, Or(custom))
	assert.Same(t, Logger, Or(nil))
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/wtr"
)

func TestLoadConfig(t *testing.T) {
	defer func() { configFile, browsers = "", nil }()

	config, err := loadConfig([]string{"test/a.test.js"})
	require.NoError(t, err)
	assert.Equal(t, []string{"test/a.test.js"}, config.Files)
	require.Len(t, config.Browsers, 1)
	assert.Equal(t, wtr.SimulatedPrefix, config.Browsers[0].Name)
	assert.Equal(t, wtr.DefaultConcurrency(), config.Concurrency)
	assert.Equal(t, 30000, config.BrowserStartTimeout)
	assert.NoError(t, config.Validate())

	configFile = filepath.Join(t.TempDir(), "wtr.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(`files: ["test/**/*.test.js"]
browsers:
  - name: simulated-chromium
    concurrency: 2
testsFinishTimeout: 500
`), 0o644))
	config, err = loadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"test/**/*.test.js"}, config.Files)
	require.Len(t, config.Browsers, 1)
	assert.Equal(t, "simulated-chromium", config.Browsers[0].Name)
	assert.Equal(t, 2, config.Browsers[0].Concurrency)
	assert.Equal(t, 500, config.TestsFinishTimeout)

	browsers = []string{"simulated-firefox", "simulated-webkit"}
	config, err = loadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"simulated-firefox", "simulated-webkit"}, config.BrowserNames())
}

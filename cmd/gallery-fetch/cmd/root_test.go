package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadGlobalConfigFromFile exercises loadGlobalConfig the way the
// teacher's own integration test exercises config loading through
// --show-config, but against the in-process Viper state rather than a
// built binary.
func TestLoadGlobalConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	content := `
SavePath = "/tmp/gallery-downloads"
CacheDirPath = "/tmp/gallery-cache"
SpiderWorkers = 7
NumberPreload = 9
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))

	viper.Reset()
	cfgFile = cfgPath
	defer func() { cfgFile = "config.toml" }()

	require.NoError(t, loadGlobalConfig(rootCmd, nil))

	assert.Equal(t, "/tmp/gallery-downloads", globalConfig.SavePath)
	assert.Equal(t, "/tmp/gallery-cache", globalConfig.CacheDirPath)
	assert.Equal(t, 7, globalConfig.SpiderWorkers)
	assert.Equal(t, 9, globalConfig.NumberPreload)
}

// TestLoadGlobalConfigFlagOverride mirrors the teacher's precedence
// check (flag overrides config file) via the bound Viper flag rather
// than a full CLI invocation.
func TestLoadGlobalConfigFlagOverride(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`SavePath = "/tmp/from-file"`), 0644))

	viper.Reset()
	cfgFile = cfgPath
	defer func() { cfgFile = "config.toml" }()

	viper.Set("savepath", "/tmp/from-flag")
	require.NoError(t, loadGlobalConfig(rootCmd, nil))

	assert.Equal(t, "/tmp/from-flag", globalConfig.SavePath)
}

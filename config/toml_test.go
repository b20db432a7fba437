package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ensureFiles(t *testing.T, rootDir string, files ...string) {
	for _, f := range files {
		p := rootify(f, rootDir)
		_, err := os.Stat(p)
		assert.Nil(t, err, p)
	}
}

func TestEnsureRoot(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	// setup temp dir for test
	tmpDir, err := ioutil.TempDir("", "config-test")
	require.Nil(err)
	defer os.RemoveAll(tmpDir)

	// create root dir
	EnsureRoot(tmpDir)

	// make sure config is set properly
	data, err := ioutil.ReadFile(filepath.Join(tmpDir, "config.toml"))
	require.Nil(err)
	assert.Equal([]byte(defaultConfigTmpl), data)

	ensureFiles(t, tmpDir, "data")
}

func TestDefaultTemplateMatchesDefaults(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	tmpDir, err := ioutil.TempDir("", "config-test")
	require.Nil(err)
	defer os.RemoveAll(tmpDir)
	EnsureRoot(tmpDir)

	v := viper.New()
	v.SetConfigFile(filepath.Join(tmpDir, "config.toml"))
	require.Nil(v.ReadInConfig())

	cfg := DefaultConfig()
	cfg.VM.RunLimit = 0
	cfg.Gate.CacheSize = 0
	cfg.Gate.MaxRetries = 0
	require.Nil(v.Unmarshal(cfg))

	def := DefaultConfig()
	assert.Equal(def.LogLevel, cfg.LogLevel)
	assert.Equal(def.DBBackend, cfg.DBBackend)
	assert.Equal(def.VM.RunLimit, cfg.VM.RunLimit)
	assert.Equal(def.Gate.CacheSize, cfg.Gate.CacheSize)
	assert.Equal(def.Gate.MaxRetries, cfg.Gate.MaxRetries)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "wglink", "config.yaml")
	ConfigFileOverride = path
	Cfg = Default()
	t.Cleanup(func() {
		ConfigFileOverride = ""
		Cfg = Default()
	})
	return path
}

func TestReadCreatesDefault(t *testing.T) {
	path := useFile(t)

	require.NoError(t, ReadConfigFile())
	assert.Equal(t, Default(), Cfg)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
}

func TestSaveAndRead(t *testing.T) {
	useFile(t)

	Cfg.InterfaceName = "wg7"
	Cfg.PrivateKey = "yAnz5TF+lXXJte14tji3zlMNq+hd2rYUIgJBgB3fBmk="
	Cfg.MTU = 1420
	Cfg.NetlinkTimeout = 2 * time.Second
	want := Cfg
	require.NoError(t, SaveConfigFile())

	Cfg = Default()
	require.NoError(t, ReadConfigFile())
	assert.Equal(t, want, Cfg)
}

func TestReadPartialFile(t *testing.T) {
	path := useFile(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("interface: wg3\nnetlink_timeout: 250ms\n"), 0o600))

	require.NoError(t, ReadConfigFile())
	assert.Equal(t, "wg3", Cfg.InterfaceName)
	assert.Equal(t, 250*time.Millisecond, Cfg.NetlinkTimeout)

	// Keys missing from the file keep their defaults.
	assert.Equal(t, "10.13.37.0/24", Cfg.Route)
	assert.Equal(t, "wg", Cfg.WGTool)
}

func TestReadRejectsBadFile(t *testing.T) {
	path := useFile(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))

	require.NoError(t, os.WriteFile(path, []byte("interface: [\n"), 0o600))
	assert.Error(t, ReadConfigFile())

	require.NoError(t, os.WriteFile(path, []byte("interface: this-name-is-too-long\n"), 0o600))
	assert.Error(t, ReadConfigFile())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(c *Config)
		ok   bool
	}{
		{"default", func(c *Config) {}, true},
		{"mtu", func(c *Config) { c.MTU = 1420 }, true},
		{"no prefix", func(c *Config) { c.Address = "10.13.37.1" }, false},
		{"bad route", func(c *Config) { c.Route = "nowhere" }, false},
		{"port", func(c *Config) { c.ListenPort = 70000 }, false},
		{"small mtu", func(c *Config) { c.MTU = 100 }, false},
		{"empty name", func(c *Config) { c.InterfaceName = "" }, false},
		{"timeout", func(c *Config) { c.NetlinkTimeout = -time.Second }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.edit(&c)
			if tt.ok {
				assert.NoError(t, c.Validate())
			} else {
				assert.Error(t, c.Validate())
			}
		})
	}
}

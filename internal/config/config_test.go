package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(base, "data"))
	return base
}

func TestLoad_Defaults(t *testing.T) {
	base := isolate(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, filepath.Join(base, "data", "uidb", "profiles.db"), cfg.Store.DSN)
	assert.Equal(t, filepath.Join(base, "data", "uidb", "vault"), cfg.Vault.Dir)
	assert.Equal(t, 10*time.Second, cfg.Gateway.ConnectTimeout)
	assert.Equal(t, 30*time.Second, cfg.Gateway.StatementTimeout)
	assert.Equal(t, 50, cfg.Gateway.PageSize)
	assert.False(t, cfg.Gateway.Pool.Enabled)
	assert.Empty(t, cfg.File)
}

func TestLoad_Precedence(t *testing.T) {
	base := isolate(t)
	path := filepath.Join(base, "uidb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
gateway:
  connect_timeout: 3s
  pool:
    enabled: true
    max_open: 8
principal: from-file
`), 0o600))

	t.Setenv("UIDB_GATEWAY__CONNECT_TIMEOUT", "4s")
	t.Setenv("UIDB_PRINCIPAL", "from-env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("principal", "", "")
	flags.String("log-format", "console", "")
	require.NoError(t, flags.Parse([]string{"--principal", "from-flag"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 4*time.Second, cfg.Gateway.ConnectTimeout)
	assert.True(t, cfg.Gateway.Pool.Enabled)
	assert.Equal(t, 8, cfg.Gateway.Pool.MaxOpen)
	assert.Equal(t, "from-flag", cfg.Principal)
}

func TestLoad_Invalid(t *testing.T) {
	isolate(t)

	t.Setenv("UIDB_STORE__DRIVER", "oracle")
	_, err := Load("", nil)
	assert.ErrorContains(t, err, "store.driver")

	t.Setenv("UIDB_STORE__DRIVER", "postgres")
	_, err = Load("", nil)
	assert.ErrorContains(t, err, "store.dsn")

	_, err = Load("/does/not/exist.yaml", nil)
	assert.Error(t, err)
}

// Package config loads uidb settings from defaults, a YAML file, UIDB_* environment
// variables and command-line flags, in increasing order of precedence.
// Only non-secret settings are expected in the file; connection passwords live in
// the vault and the vault passphrase is best supplied through the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"uidb/gateway/internal/logging"
	"uidb/gateway/internal/xdg"
)

// EnvPrefix prefixes every environment override. A double underscore separates
// nesting levels: UIDB_GATEWAY__CONNECT_TIMEOUT sets gateway.connect_timeout.
const EnvPrefix = "UIDB_"

// Config holds the resolved settings.
type Config struct {
	Log       logging.Config `koanf:"log"`
	Store     StoreConfig    `koanf:"store"`
	Vault     VaultConfig    `koanf:"vault"`
	Gateway   GatewayConfig  `koanf:"gateway"`
	GRPC      GRPCConfig     `koanf:"grpc"`
	Principal string         `koanf:"principal"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// StoreConfig selects the profile store backend.
type StoreConfig struct {
	Driver string `koanf:"driver"` // sqlite or postgres
	DSN    string `koanf:"dsn"`
}

// VaultConfig configures the encrypted password vault.
type VaultConfig struct {
	Backend    string `koanf:"backend"` // file or system
	Dir        string `koanf:"dir"`
	Passphrase string `koanf:"passphrase"`
}

// GatewayConfig bounds connection and statement lifetimes.
type GatewayConfig struct {
	ConnectTimeout   time.Duration `koanf:"connect_timeout"`
	StatementTimeout time.Duration `koanf:"statement_timeout"`
	PageSize         int           `koanf:"page_size"`
	Pool             PoolConfig    `koanf:"pool"`
}

// PoolConfig enables the optional per-profile connection pool.
type PoolConfig struct {
	Enabled     bool          `koanf:"enabled"`
	MaxOpen     int           `koanf:"max_open"`
	MaxIdle     int           `koanf:"max_idle"`
	IdleTimeout time.Duration `koanf:"idle_timeout"`
}

// GRPCConfig configures the serve command.
type GRPCConfig struct {
	Addr string `koanf:"addr"`
}

// Defaults returns the built-in settings.
func Defaults() map[string]any {
	return map[string]any{
		"log.level":                 "info",
		"log.format":                "console",
		"store.driver":              "sqlite",
		"vault.backend":             "file",
		"gateway.connect_timeout":   "10s",
		"gateway.statement_timeout": "30s",
		"gateway.page_size":         50,
		"gateway.pool.enabled":      false,
		"gateway.pool.max_open":     4,
		"gateway.pool.max_idle":     2,
		"gateway.pool.idle_timeout": "5m",
		"grpc.addr":                 "127.0.0.1:7420",
	}
}

// flagKeys maps flag names onto config keys. Flags not listed are ignored.
var flagKeys = map[string]string{
	"log-level":         "log.level",
	"log-format":        "log.format",
	"log-file":          "log.file",
	"store-driver":      "store.driver",
	"store-dsn":         "store.dsn",
	"vault-dir":         "vault.dir",
	"vault-backend":     "vault.backend",
	"connect-timeout":   "gateway.connect_timeout",
	"statement-timeout": "gateway.statement_timeout",
	"pool":              "gateway.pool.enabled",
	"grpc-addr":         "grpc.addr",
	"principal":         "principal",
}

// Load resolves configuration. cfgFile may be empty, in which case config.yaml in
// the XDG config directory is used when present. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	path, err := findConfigFile(cfgFile)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. Environment: UIDB_GATEWAY__POOL__MAX_OPEN -> gateway.pool.max_open
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = path

	if err := cfg.fillPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", nil
	}
	for _, name := range []string{"config.yaml", "config.yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

// fillPaths places the sqlite store and the vault under the XDG data directory
// unless configured explicitly.
func (c *Config) fillPaths() error {
	if c.Store.DSN != "" && c.Vault.Dir != "" {
		return nil
	}
	dir, err := xdg.DataDir()
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	if c.Store.DSN == "" && c.Store.Driver == "sqlite" {
		c.Store.DSN = filepath.Join(dir, "profiles.db")
	}
	if c.Vault.Dir == "" {
		c.Vault.Dir = filepath.Join(dir, "vault")
	}
	return nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.DSN == "" {
		return errors.New("store.dsn is required for the postgres store")
	}
	switch c.Vault.Backend {
	case "file", "system":
	default:
		return fmt.Errorf("vault.backend must be file or system, got %q", c.Vault.Backend)
	}
	if c.Gateway.ConnectTimeout <= 0 || c.Gateway.StatementTimeout <= 0 {
		return errors.New("gateway timeouts must be positive")
	}
	if c.Gateway.PageSize <= 0 {
		return errors.New("gateway.page_size must be positive")
	}
	if c.Gateway.Pool.Enabled && c.Gateway.Pool.MaxOpen <= 0 {
		return errors.New("gateway.pool.max_open must be positive when pooling is enabled")
	}
	return nil
}

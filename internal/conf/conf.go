package conf

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingBaseURL is returned by Validate when no API base URL is configured.
var ErrMissingBaseURL = errors.New("api base_url is required")

// Config is the config structure.
type Config struct {
	API     API     `yaml:"api"`
	Session Session `yaml:"session"`
	Auth    Auth    `yaml:"auth"`
	Stub    Stub    `yaml:"stub"`
}

// API is the remote service config.
type API struct {
	BaseURL string            `yaml:"base_url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// Session is the credential persistence config.
type Session struct {
	Store string `yaml:"store"` // file, sqlite or memory
	Path  string `yaml:"path"`
}

// Auth is the token verification config.
// When Issuer is empty, tokens are decoded without signature verification.
type Auth struct {
	Issuer   string `yaml:"issuer"`
	ClientID string `yaml:"client_id"`
}

// Stub is the config of the local stand-in for the remote service.
type Stub struct {
	Addr     string        `yaml:"addr"`
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Load loads config from file.
// A missing file is not an error: the config is then built from defaults and env.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if baseURL := os.Getenv("MEDISCAN_API_BASE_URL"); baseURL != "" {
		c.API.BaseURL = baseURL
	}
	if store := os.Getenv("MEDISCAN_SESSION_STORE"); store != "" {
		c.Session.Store = store
	}
	if path := os.Getenv("MEDISCAN_SESSION_PATH"); path != "" {
		c.Session.Path = path
	}
	if issuer := os.Getenv("MEDISCAN_OIDC_ISSUER"); issuer != "" {
		c.Auth.Issuer = issuer
	}
	if addr := os.Getenv("MEDISCAN_STUB_ADDR"); addr != "" {
		c.Stub.Addr = addr
	}
	if secret := os.Getenv("MEDISCAN_STUB_SECRET"); secret != "" {
		c.Stub.Secret = secret
	}
}

func (c *Config) applyDefaults() {
	if c.API.Timeout <= 0 {
		c.API.Timeout = 60 * time.Second
	}
	if c.Session.Store == "" {
		c.Session.Store = StoreFile
	}
	if c.Session.Path == "" {
		c.Session.Path = defaultSessionPath(c.Session.Store)
	}
	if c.Stub.Addr == "" {
		c.Stub.Addr = "127.0.0.1:8000"
	}
	if c.Stub.TokenTTL <= 0 {
		c.Stub.TokenTTL = time.Hour
	}
}

// Validate checks the values that must be supplied before the first remote call.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return ErrMissingBaseURL
	}
	switch c.Session.Store {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}
	return nil
}

func defaultSessionPath(store string) string {
	name := "token"
	if store == StoreSQLite {
		name = "session.db"
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "data/" + name
	}
	return dir + "/mediscan/" + name
}

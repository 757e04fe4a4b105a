// Package config provides configuration management for the dataspace browser.
//
// Sources are merged in increasing priority:
//
//	defaults → YAML file → DSBROWSE_* environment → command-line flags
//
// Example config.yaml:
//
//	base_url: https://try.activeeon.com
//	session_file: ~/.config/dsbrowse/session
//	dataspace: user
//	proxy_mode: system
//	request_timeout: 30s
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "DSBROWSE_"

// ErrMissingSession is returned when no session credential could be found.
var ErrMissingSession = errors.New("session id is required (use --session, DSBROWSE_SESSION_ID, or session_file)")

// Config holds everything needed to talk to a dataspace server.
type Config struct {
	// Server
	BaseURL   string `koanf:"base_url" validate:"required,url"`
	Dataspace string `koanf:"dataspace" default:"user" validate:"oneof=user global"`

	// Session credential; SessionFile is read when SessionID is empty
	SessionID   string `koanf:"session_id"`
	SessionFile string `koanf:"session_file"`

	// Proxy settings
	ProxyMode     string `koanf:"proxy_mode" default:"no-proxy" validate:"oneof=no-proxy system basic ntlm"`
	ProxyHost     string `koanf:"proxy_host"`
	ProxyPort     int    `koanf:"proxy_port" default:"8080" validate:"gte=0,lte=65535"`
	ProxyUser     string `koanf:"proxy_user"`
	ProxyPassword string `koanf:"proxy_password"`
	NoProxy       string `koanf:"no_proxy"` // Comma-separated list of hosts to bypass proxy

	// Transport
	RequestTimeout time.Duration `koanf:"request_timeout" default:"60s" validate:"gt=0"`
	MaxRetries     int           `koanf:"max_retries" default:"0" validate:"gte=0,lte=10"`
	RatePerSec     float64       `koanf:"rate_per_sec" default:"10" validate:"gt=0"`
	RateBurst      float64       `koanf:"rate_burst" default:"20" validate:"gte=1"`

	// Local side
	DownloadDir string `koanf:"download_dir" default:"."`
}

// DefaultConfigPath returns ~/.config/dsbrowse/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, ".config", "dsbrowse", "config.yaml"), nil
}

// New returns a Config populated with default values only.
func New() *Config {
	cfg := &Config{}
	// Only fails on malformed default tags, which is a programming error.
	if err := defaults.Set(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// Load merges defaults, the YAML file at path and the environment.
// An empty path means DefaultConfigPath; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		if p, err := DefaultConfigPath(); err == nil {
			path = p
		}
	}

	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, errors.Wrapf(err, "failed to load config file %s", path)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to stat config file %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load environment")
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	return cfg, nil
}

// MergeWithFlags applies non-empty command-line values on top of the loaded config.
// Priority: flags > environment > config file > defaults
func (c *Config) MergeWithFlags(baseURL, sessionID, dataspace, proxyMode string) {
	if baseURL != "" {
		c.BaseURL = baseURL
	}
	if sessionID != "" {
		c.SessionID = sessionID
	}
	if dataspace != "" {
		c.Dataspace = strings.ToLower(dataspace)
	}
	if proxyMode != "" {
		c.ProxyMode = proxyMode
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fe.Field()+" failed '"+fe.Tag()+"'")
			}
			return errors.Errorf("invalid config: %s", strings.Join(msgs, ", "))
		}
		return errors.Wrap(err, "invalid config")
	}
	if (c.ProxyMode == "basic" || c.ProxyMode == "ntlm") && c.ProxyHost == "" {
		return errors.Errorf("invalid config: proxy_host is required for proxy mode %q", c.ProxyMode)
	}
	return nil
}

// ResolveSession returns the session credential, reading SessionFile if needed.
func (c *Config) ResolveSession() (string, error) {
	if c.SessionID != "" {
		return c.SessionID, nil
	}
	if c.SessionFile == "" {
		return "", ErrMissingSession
	}

	path := c.SessionFile
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "failed to get home directory")
		}
		path = filepath.Join(home, path[1:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read session file %s", path)
	}
	session := strings.TrimSpace(string(data))
	if session == "" {
		return "", ErrMissingSession
	}
	c.SessionID = session
	return session, nil
}

// DataspaceURL returns the REST root of the configured dataspace, with a trailing slash.
func (c *Config) DataspaceURL(restPath string) string {
	return strings.TrimSuffix(c.BaseURL, "/") + restPath + c.Dataspace + "/"
}

// Save writes the persistent settings to path as YAML. The session id and
// proxy password are never written; point session_file at a token file instead.
func (c *Config) Save(path string) error {
	values := map[string]interface{}{
		"base_url":        c.BaseURL,
		"dataspace":       c.Dataspace,
		"proxy_mode":      c.ProxyMode,
		"proxy_port":      c.ProxyPort,
		"request_timeout": c.RequestTimeout.String(),
		"max_retries":     c.MaxRetries,
		"rate_per_sec":    c.RatePerSec,
		"rate_burst":      c.RateBurst,
		"download_dir":    c.DownloadDir,
	}
	optional := map[string]string{
		"session_file": c.SessionFile,
		"proxy_host":   c.ProxyHost,
		"proxy_user":   c.ProxyUser,
		"no_proxy":     c.NoProxy,
	}
	for k, v := range optional {
		if v != "" {
			values[k] = v
		}
	}

	data, err := yaml.Parser().Marshal(values)
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrapf(err, "failed to create %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrapf(err, "failed to write config file %s", path)
	}
	return nil
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBackend  = "sqlite"
	DefaultEndpoint = "crudx.db"
	DefaultTimeout  = 10 * time.Second

	envPrefix = "CRUDX_"
)

// Credentials are handed to the backend as-is.
type Credentials struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ConnectionConfig describes how to reach the store. Options are opaque to the
// core and interpreted only by the selected backend.
type ConnectionConfig struct {
	Backend     string
	Endpoint    string
	Credentials Credentials
	Options     map[string]string
	Timeout     time.Duration
}

type fileConfig struct {
	Backend  string            `yaml:"backend"`
	Endpoint string            `yaml:"endpoint"`
	User     string            `yaml:"user"`
	Password string            `yaml:"password"`
	Timeout  string            `yaml:"timeout"`
	Options  map[string]string `yaml:"options"`
}

// Default returns a ConnectionConfig pointing at a local SQLite file.
func Default() ConnectionConfig {
	return ConnectionConfig{
		Backend:  DefaultBackend,
		Endpoint: DefaultEndpoint,
		Options:  map[string]string{},
		Timeout:  DefaultTimeout,
	}
}

// LoadConfig builds a ConnectionConfig from defaults, the optional YAML file at
// path, a .env file in the working directory and the environment, in that
// order of increasing precedence.
func LoadConfig(path string) (ConnectionConfig, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return cfg, err
		}
	}

	_ = godotenv.Load()

	if err := cfg.mergeEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *ConnectionConfig) mergeFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(content, &fc); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}

	if fc.Backend != "" {
		c.Backend = fc.Backend
	}
	if fc.Endpoint != "" {
		c.Endpoint = fc.Endpoint
	}
	if fc.User != "" {
		c.Credentials.User = fc.User
	}
	if fc.Password != "" {
		c.Credentials.Password = fc.Password
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q in %s: %w", fc.Timeout, path, err)
		}
		c.Timeout = d
	}
	for k, v := range fc.Options {
		c.SetOption(k, v)
	}
	return nil
}

func (c *ConnectionConfig) mergeEnv() error {
	if v := os.Getenv(envPrefix + "BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(envPrefix + "ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv(envPrefix + "USER"); v != "" {
		c.Credentials.User = v
	}
	if v := os.Getenv(envPrefix + "PASSWORD"); v != "" {
		c.Credentials.Password = v
	}
	if v := os.Getenv(envPrefix + "TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", envPrefix, err)
		}
		c.Timeout = d
	}
	if v := os.Getenv(envPrefix + "OPTIONS"); v != "" {
		opts, err := ParseOptions(strings.Split(v, ","))
		if err != nil {
			return fmt.Errorf("%sOPTIONS: %w", envPrefix, err)
		}
		for k, val := range opts {
			c.SetOption(k, val)
		}
	}
	return nil
}

// SetOption sets a backend option, allocating the map if needed.
func (c *ConnectionConfig) SetOption(key, value string) {
	if c.Options == nil {
		c.Options = map[string]string{}
	}
	c.Options[strings.TrimSpace(key)] = strings.TrimSpace(value)
}

// Option returns the option value for key, or def when unset.
func (c ConnectionConfig) Option(key, def string) string {
	if v, ok := c.Options[key]; ok && v != "" {
		return v
	}
	return def
}

// BoolOption reports whether option key is set to a truthy value.
func (c ConnectionConfig) BoolOption(key string, def bool) bool {
	v, ok := c.Options[key]
	if !ok || v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

// Validate checks that the configuration can be handed to a backend.
func (c ConnectionConfig) Validate() error {
	if strings.TrimSpace(c.Backend) == "" {
		return fmt.Errorf("backend cannot be empty")
	}
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// String renders the configuration for logs with the password masked.
func (c ConnectionConfig) String() string {
	keys := make([]string, 0, len(c.Options))
	for k := range c.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	opts := make([]string, len(keys))
	for i, k := range keys {
		v := c.Options[k]
		if sensitiveOptions[strings.ToLower(k)] && v != "" {
			v = "***"
		}
		opts[i] = k + "=" + v
	}

	pwd := ""
	if c.Credentials.Password != "" {
		pwd = "***"
	}
	return fmt.Sprintf("backend=%s endpoint=%s user=%s password=%s timeout=%s options=[%s]",
		c.Backend, maskEndpoint(c.Endpoint), c.Credentials.User, pwd, c.Timeout, strings.Join(opts, ","))
}

var sensitiveOptions = map[string]bool{
	"token":    true,
	"password": true,
	"secret":   true,
}

// maskEndpoint hides a password embedded in a URL endpoint or a mysql DSN.
func maskEndpoint(endpoint string) string {
	switch {
	case strings.Contains(endpoint, "://"):
		u, err := url.Parse(endpoint)
		if err != nil {
			return "<invalid-url>"
		}
		return u.Redacted()
	case strings.Contains(endpoint, "@"):
		mc, err := mysql.ParseDSN(endpoint)
		if err != nil {
			return "<invalid-dsn>"
		}
		if mc.Passwd != "" {
			mc.Passwd = "***"
		}
		return mc.FormatDSN()
	default:
		return endpoint
	}
}

// ParseOptions parses "key=value" pairs as given on the command line.
func ParseOptions(pairs []string) (map[string]string, error) {
	opts := make(map[string]string, len(pairs))
	for _, p := range pairs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid option %q (expected key=value)", p)
		}
		opts[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return opts, nil
}

// Package pricer orchestrates concurrent part-price searches across a set of
// browser-only auto parts portals. It owns the per-site sessions, the task
// worker, and the HTTP API over the task store.
package pricer

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that accepts "20m" style strings in YAML.
// Bare integers are taken as nanoseconds, matching yaml.v3's native decode.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("pricer: duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("pricer: duration: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Config is the top-level pricer configuration.
type Config struct {
	DBPath     string        `yaml:"db_path"`
	CookiesDir string        `yaml:"cookies_dir"`
	Browser    BrowserConfig `yaml:"browser"`

	// KeepAliveInterval is the period of each session's background ping.
	KeepAliveInterval Duration `yaml:"keep_alive_interval"`
	// CacheWindow is how long a cached per-source price stays fresh.
	CacheWindow Duration `yaml:"cache_window"`
	// SourceTimeout bounds one source's search within a task.
	SourceTimeout Duration `yaml:"source_timeout"`
	// RetryAttempts caps search attempts per source per task.
	RetryAttempts int `yaml:"retry_attempts"`
	// PollInterval is the worker's idle sleep between claim attempts.
	PollInterval Duration `yaml:"poll_interval"`

	Sites map[string]SiteConfig `yaml:"sites"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	// CDPURL attaches to a running Chrome instead of launching one.
	CDPURL   string `yaml:"cdp_url"`
	Headless bool   `yaml:"headless"`
}

// SiteConfig carries per-site credentials and extraction overrides.
type SiteConfig struct {
	Enabled  *bool  `yaml:"enabled"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// MinPrice and MaxPrice override the site's price sanity band.
	MinPrice float64 `yaml:"min_price"`
	MaxPrice float64 `yaml:"max_price"`
}

// SiteEnabled reports whether a site participates in searches. Sites are
// enabled unless explicitly turned off.
func (c *Config) SiteEnabled(site string) bool {
	sc, ok := c.Sites[site]
	if !ok || sc.Enabled == nil {
		return true
	}
	return *sc.Enabled
}

// LoadConfigFile reads a YAML configuration file and applies defaults and
// environment credential overrides.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pricer: read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("pricer: parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

// DefaultConfig returns a usable config without a file.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = "pricer.db"
	}
	if c.CookiesDir == "" {
		c.CookiesDir = "cookies"
	}
	if c.KeepAliveInterval <= 0 {
		c.KeepAliveInterval = Duration(20 * time.Minute)
	}
	if c.CacheWindow <= 0 {
		c.CacheWindow = Duration(30 * time.Minute)
	}
	if c.SourceTimeout <= 0 {
		c.SourceTimeout = Duration(30 * time.Second)
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.PollInterval <= 0 {
		c.PollInterval = Duration(2 * time.Second)
	}
	if c.Sites == nil {
		c.Sites = map[string]SiteConfig{}
	}
}

// applyEnv lets credentials come from the environment so the config file
// can be committed without secrets. PRICER_<SITE>_USERNAME / _PASSWORD.
func (c *Config) applyEnv() {
	for _, site := range []string{"zzap", "stparts", "trast", "autovid", "autotrade"} {
		prefix := "PRICER_" + strings.ToUpper(site) + "_"
		sc := c.Sites[site]
		if v := os.Getenv(prefix + "USERNAME"); v != "" {
			sc.Username = v
		}
		if v := os.Getenv(prefix + "PASSWORD"); v != "" {
			sc.Password = v
		}
		c.Sites[site] = sc
	}
}

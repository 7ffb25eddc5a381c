package pricer

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "db_path: /tmp/x.db\n")

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "/tmp/x.db" {
		t.Fatalf("got %q, want /tmp/x.db", cfg.DBPath)
	}
	if cfg.KeepAliveInterval.Std() != 20*time.Minute {
		t.Fatalf("got keep-alive %v, want 20m", cfg.KeepAliveInterval)
	}
	if cfg.CacheWindow.Std() != 30*time.Minute {
		t.Fatalf("got cache window %v, want 30m", cfg.CacheWindow)
	}
	if cfg.SourceTimeout.Std() != 30*time.Second {
		t.Fatalf("got source timeout %v, want 30s", cfg.SourceTimeout)
	}
	if cfg.RetryAttempts != 3 {
		t.Fatalf("got retries %d, want 3", cfg.RetryAttempts)
	}
}

func TestLoadConfigDurationStrings(t *testing.T) {
	body := `
keep_alive_interval: 20m
cache_window: 30m
source_timeout: 45s
poll_interval: 500ms
`
	cfg, err := LoadConfigFile(writeConfig(t, body))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.KeepAliveInterval.Std() != 20*time.Minute {
		t.Fatalf("got %v, want 20m", cfg.KeepAliveInterval)
	}
	if cfg.SourceTimeout.Std() != 45*time.Second {
		t.Fatalf("got %v, want 45s", cfg.SourceTimeout)
	}
	if cfg.PollInterval.Std() != 500*time.Millisecond {
		t.Fatalf("got %v, want 500ms", cfg.PollInterval)
	}

	if _, err := LoadConfigFile(writeConfig(t, "source_timeout: soon\n")); err == nil {
		t.Fatal("expected an error for a malformed duration")
	}
}

func TestLoadConfigSites(t *testing.T) {
	body := `
sites:
  stparts:
    username: buyer
    password: secret
  autovid:
    enabled: false
  zzap:
    min_price: 50
`
	cfg, err := LoadConfigFile(writeConfig(t, body))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Sites["stparts"].Username != "buyer" {
		t.Fatalf("got %q, want buyer", cfg.Sites["stparts"].Username)
	}
	if cfg.SiteEnabled("autovid") {
		t.Fatal("autovid is disabled")
	}
	if !cfg.SiteEnabled("stparts") || !cfg.SiteEnabled("trast") {
		t.Fatal("sites are enabled unless turned off")
	}

	rules := siteRules(cfg)
	if _, ok := rules["autovid"]; ok {
		t.Fatal("disabled site must not get rules")
	}
	if rules["zzap"].MinPrice != 50 {
		t.Fatalf("got band min %v, want override 50", rules["zzap"].MinPrice)
	}
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv("PRICER_TRAST_USERNAME", "envuser")
	t.Setenv("PRICER_TRAST_PASSWORD", "envpass")

	cfg := DefaultConfig()
	if cfg.Sites["trast"].Username != "envuser" || cfg.Sites["trast"].Password != "envpass" {
		t.Fatalf("got %+v, want env credentials", cfg.Sites["trast"])
	}

	policies := sitePolicies(cfg)
	if policies["trast"].Username != "envuser" {
		t.Fatalf("got %q, want envuser in policy", policies["trast"].Username)
	}
}

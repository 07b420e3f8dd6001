package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

/* ========== applyEnvOverrides ========== */

func TestApplyEnvOverrides_ServerPort(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("SERVER_PORT", "9090")

	cfg.applyEnvOverrides()
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
}

func TestApplyEnvOverrides_InvalidPort_Ignored(t *testing.T) {
	cfg := defaultConfig()
	original := cfg.Server.Port
	t.Setenv("SERVER_PORT", "not-a-number")

	cfg.applyEnvOverrides()
	if cfg.Server.Port != original {
		t.Errorf("Server.Port changed to %d on invalid input, should stay %d", cfg.Server.Port, original)
	}
}

func TestApplyEnvOverrides_Database(t *testing.T) {
	cfg := defaultConfig()
	dsn := "postgres://idp:pw@localhost/maxidp"
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", dsn)

	cfg.applyEnvOverrides()
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, "postgres")
	}
	if cfg.Database.DSN != dsn {
		t.Errorf("Database.DSN = %q, want %q", cfg.Database.DSN, dsn)
	}
}

func TestApplyEnvOverrides_CacheLists(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("CACHE_DRIVER", "memcached")
	t.Setenv("MEMCACHED_SERVERS", "mc1:11211, mc2:11211,")

	cfg.applyEnvOverrides()
	if cfg.Cache.Driver != "memcached" {
		t.Errorf("Cache.Driver = %q, want memcached", cfg.Cache.Driver)
	}
	if len(cfg.Cache.MemcachedServers) != 2 || cfg.Cache.MemcachedServers[1] != "mc2:11211" {
		t.Errorf("MemcachedServers = %v", cfg.Cache.MemcachedServers)
	}
}

func TestApplyEnvOverrides_Secrets(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("ADMIN_PASSWORD", "env-admin-pw")

	cfg.applyEnvOverrides()
	if cfg.Session.Secret != "env-secret" {
		t.Errorf("Session.Secret = %q, want env-secret", cfg.Session.Secret)
	}
	if cfg.Admin.Password != "env-admin-pw" {
		t.Errorf("Admin.Password = %q, want env-admin-pw", cfg.Admin.Password)
	}
}

/* ========== LoadFromFile ========== */

func TestLoadFromFile_CreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "config.json")
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config not written: %v", err)
	}
	if cfg.OAuth.AuthCodeTTL != 10*time.Minute {
		t.Errorf("AuthCodeTTL = %v, want 10m", cfg.OAuth.AuthCodeTTL)
	}
	if cfg.OAuth.AccessTokenTTL != 24*time.Hour {
		t.Errorf("AccessTokenTTL = %v, want 24h", cfg.OAuth.AccessTokenTTL)
	}

	again, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("second LoadFromFile() error: %v", err)
	}
	if again.Session.Secret != cfg.Session.Secret {
		t.Error("session secret not persisted across loads")
	}
}

func TestLoadFromFile_PartialOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"oauth":{"auth_code_ttl_minutes":5},"session":{"secret":""}}`), 0o600)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.OAuth.AuthCodeTTL != 5*time.Minute {
		t.Errorf("AuthCodeTTL = %v, want 5m", cfg.OAuth.AuthCodeTTL)
	}
	if cfg.OAuth.Realm != "Maximum IdP" {
		t.Errorf("Realm = %q, want default", cfg.OAuth.Realm)
	}
	if cfg.Session.Secret == "" {
		t.Error("empty session secret not regenerated")
	}
}

func TestLoadFromFile_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{not json`), 0o600)

	if _, err := LoadFromFile(path); err == nil {
		t.Error("LoadFromFile(invalid json) should fail")
	}
}

/* ========== Validate ========== */

func TestValidate_Defaults(t *testing.T) {
	errs, _ := Default().Validate()
	if len(errs) != 0 {
		t.Errorf("Validate(defaults) errs = %v", errs)
	}
}

func TestValidate_Errors(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	cfg.Database.Driver = "oracle"
	cfg.Cache.Driver = "redis"
	cfg.Session.Secret = "short"
	cfg.OAuth.AuthCodeTTLMin = 0
	cfg.OAuth.Realm = `bad"realm`

	errs, _ := cfg.Validate()
	joined := strings.Join(errs, "\n")
	for _, want := range []string{"server.port", "database.driver", "cache.redis_url", "session.secret", "oauth.auth_code_ttl_minutes", "oauth.realm"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Validate() missing error for %s; got:\n%s", want, joined)
		}
	}
}

func TestValidate_Warnings(t *testing.T) {
	cfg := Default()
	cfg.Server.Mode = "release"
	cfg.OAuth.AuthCodeTTLMin = 30

	errs, warns := cfg.Validate()
	if len(errs) != 0 {
		t.Fatalf("Validate() errs = %v", errs)
	}
	if len(warns) < 2 {
		t.Errorf("Validate() warns = %v, want code ttl and admin password warnings", warns)
	}
}

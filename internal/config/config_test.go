package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/nomadhub")
	t.Setenv("PORT", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("FETCH_TIMEOUT", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("SITE_NAME", "")
	t.Setenv("DIGEST_SUBJECT", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.SessionTTL != 20*time.Minute {
		t.Errorf("SessionTTL = %v, want 20m", cfg.SessionTTL)
	}
	if cfg.FetchTimeout != 10*time.Second {
		t.Errorf("FetchTimeout = %v, want 10s", cfg.FetchTimeout)
	}
	if cfg.Production {
		t.Error("Production should default to false")
	}
	if cfg.DigestSubject != "NomadProHub Weekly Digest" {
		t.Errorf("DigestSubject = %q", cfg.DigestSubject)
	}
	if diff := cmp.Diff([]string{"*"}, cfg.CORSAllowedOrigins); diff != "" {
		t.Errorf("CORSAllowedOrigins mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/nomadhub")
	t.Setenv("PORT", "8081")
	t.Setenv("APP_ENV", "production")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("FETCH_ALLOW_PRIVATE", "true")
	t.Setenv("SITE_URL", "https://example.com/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 8081 {
		t.Errorf("Port = %d, want 8081", cfg.Port)
	}
	if !cfg.Production {
		t.Error("Production should be true")
	}
	if cfg.FetchTimeout != 3*time.Second {
		t.Errorf("FetchTimeout = %v", cfg.FetchTimeout)
	}
	if !cfg.FetchAllowPrivate {
		t.Error("FetchAllowPrivate should be true")
	}
	if cfg.SiteURL != "https://example.com" {
		t.Errorf("SiteURL = %q, trailing slash should be trimmed", cfg.SiteURL)
	}
	want := []string{"https://a.example", "https://b.example"}
	if diff := cmp.Diff(want, cfg.CORSAllowedOrigins); diff != "" {
		t.Errorf("CORSAllowedOrigins mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/nomadhub")
	t.Setenv("PORT", "not-a-number")
	t.Setenv("SESSION_TTL", "forever")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want fallback 3000", cfg.Port)
	}
	if cfg.SessionTTL != 20*time.Minute {
		t.Errorf("SessionTTL = %v, want fallback 20m", cfg.SessionTTL)
	}
}

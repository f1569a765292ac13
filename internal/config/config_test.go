package config

import "testing"

func TestDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Addr != ":8080" {
		t.Errorf("addr %q, want :8080", cfg.Addr)
	}
	if cfg.DBPath != "parley.db" {
		t.Errorf("db path %q", cfg.DBPath)
	}
	if cfg.RatePerMin != 10 || cfg.RateBurst != 5 {
		t.Errorf("rate limits %d/%d", cfg.RatePerMin, cfg.RateBurst)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PARLEY_ADDR", "127.0.0.1:9000")
	t.Setenv("PARLEY_DB", "/tmp/other.db")
	t.Setenv("PARLEY_RL_AUTH_PER_MIN", "60")

	cfg := Load()
	if cfg.Addr != "127.0.0.1:9000" {
		t.Errorf("addr %q", cfg.Addr)
	}
	if cfg.DBPath != "/tmp/other.db" {
		t.Errorf("db path %q", cfg.DBPath)
	}
	if cfg.RatePerMin != 60 {
		t.Errorf("rate per min %d", cfg.RatePerMin)
	}
}

func TestPortFallback(t *testing.T) {
	t.Setenv("PORT", "3000")
	if cfg := Load(); cfg.Addr != ":3000" {
		t.Errorf("addr %q, want :3000", cfg.Addr)
	}
}

func TestBadIntFallsBack(t *testing.T) {
	t.Setenv("PARLEY_RL_AUTH_BURST", "lots")
	if cfg := Load(); cfg.RateBurst != 5 {
		t.Errorf("burst %d, want default 5", cfg.RateBurst)
	}
}

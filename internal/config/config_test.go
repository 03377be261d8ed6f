package config

import (
	"os"
	"testing"
	"time"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadServerDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("QRIS_EXPIRED_MINUTES", "0")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer failed: %v", err)
	}
	if cfg.AppPort != "8080" || cfg.CashifyBaseURL != "https://cashify.my.id" || !cfg.UseUniqueCode {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.ExpiredMinutes != 10 {
		t.Errorf("ExpiredMinutes = %d, want fallback 10", cfg.ExpiredMinutes)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.SignatureMaxAge() != 5*time.Minute {
		t.Errorf("SignatureMaxAge = %v", cfg.SignatureMaxAge())
	}
}

func TestLoadClient(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("POLL_INTERVAL", "2s")
	t.Setenv("DONATION_PRESETS", "5000,20000")
	t.Setenv("CACHE_BACKEND", "redis")

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("LoadClient failed: %v", err)
	}
	if cfg.PollInterval != 2*time.Second || cfg.CacheBackend != "redis" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if len(cfg.Presets) != 2 || cfg.Presets[0] != 5000 {
		t.Errorf("Presets = %v", cfg.Presets)
	}
}

func TestLoadClientRejectsBadDuration(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("POLL_INTERVAL", "soon")
	if _, err := LoadClient(); err == nil {
		t.Fatal("expected parse error")
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageType != "bbolt" {
		t.Fatalf("storage_type = %q", cfg.StorageType)
	}
	if cfg.SweepInterval != time.Minute {
		t.Fatalf("sweep interval = %v", cfg.SweepInterval)
	}
	if cfg.RetrySweepInterval != 5*time.Minute {
		t.Fatalf("retry sweep interval = %v", cfg.RetrySweepInterval)
	}
	if cfg.PublishAttempts != 3 || cfg.PublishBackoff != 2*time.Second {
		t.Fatalf("publish attempts=%d backoff=%v", cfg.PublishAttempts, cfg.PublishBackoff)
	}
	if cfg.HTTPTimeout != 15*time.Second {
		t.Fatalf("http timeout = %v", cfg.HTTPTimeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "memory")
	t.Setenv("SWEEP_INTERVAL_SECONDS", "5")
	t.Setenv("PUBLISH_ATTEMPTS", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageType != "memory" {
		t.Fatalf("storage_type = %q", cfg.StorageType)
	}
	if cfg.SweepInterval != 5*time.Second {
		t.Fatalf("sweep interval = %v", cfg.SweepInterval)
	}
	if cfg.PublishAttempts != 1 {
		t.Fatalf("publish attempts = %d", cfg.PublishAttempts)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"SWEEP_INTERVAL_SECONDS": "0",
		"SWEEP_BATCH_SIZE":       "-1",
		"PUBLISH_ATTEMPTS":       "0",
		"HTTP_TIMEOUT_SECONDS":   "0",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}

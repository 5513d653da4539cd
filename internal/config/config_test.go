package config

import (
	"strings"
	"testing"
	"time"
)

func TestEnvStr(t *testing.T) {
	t.Setenv("TEST_STR", "hello")
	if got := envStr("TEST_STR", "default"); got != "hello" {
		t.Errorf("envStr(TEST_STR) = %q, want %q", got, "hello")
	}
	if got := envStr("TEST_STR_MISSING", "default"); got != "default" {
		t.Errorf("envStr(TEST_STR_MISSING) = %q, want %q", got, "default")
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	got, err := envInt("TEST_INT", 7)
	if err != nil {
		t.Fatalf("envInt(TEST_INT) error: %v", err)
	}
	if got != 42 {
		t.Errorf("envInt(TEST_INT) = %d, want 42", got)
	}

	got, err = envInt("TEST_INT_MISSING", 7)
	if err != nil {
		t.Fatalf("envInt(TEST_INT_MISSING) error: %v", err)
	}
	if got != 7 {
		t.Errorf("envInt(TEST_INT_MISSING) = %d, want 7", got)
	}

	t.Setenv("TEST_INT_BAD", "abc")
	if _, err := envInt("TEST_INT_BAD", 7); err == nil {
		t.Error("envInt(TEST_INT_BAD) expected error, got nil")
	} else if !strings.Contains(err.Error(), "TEST_INT_BAD") {
		t.Errorf("envInt(TEST_INT_BAD) error %q should name the variable", err)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	got, err := envBool("TEST_BOOL", false)
	if err != nil {
		t.Fatalf("envBool(TEST_BOOL) error: %v", err)
	}
	if !got {
		t.Error("envBool(TEST_BOOL) = false, want true")
	}

	t.Setenv("TEST_BOOL_BAD", "maybe")
	if _, err := envBool("TEST_BOOL_BAD", false); err == nil {
		t.Error("envBool(TEST_BOOL_BAD) expected error, got nil")
	}
}

func TestEnvFloat(t *testing.T) {
	t.Setenv("TEST_FLOAT", "0.75")
	got, err := envFloat("TEST_FLOAT", 0.5)
	if err != nil {
		t.Fatalf("envFloat(TEST_FLOAT) error: %v", err)
	}
	if got != 0.75 {
		t.Errorf("envFloat(TEST_FLOAT) = %v, want 0.75", got)
	}

	t.Setenv("TEST_FLOAT_BAD", "lots")
	if _, err := envFloat("TEST_FLOAT_BAD", 0.5); err == nil {
		t.Error("envFloat(TEST_FLOAT_BAD) expected error, got nil")
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("TEST_DUR", "90s")
	got, err := envDuration("TEST_DUR", time.Minute)
	if err != nil {
		t.Fatalf("envDuration(TEST_DUR) error: %v", err)
	}
	if got != 90*time.Second {
		t.Errorf("envDuration(TEST_DUR) = %v, want 90s", got)
	}

	t.Setenv("TEST_DUR_BAD", "fortnight")
	if _, err := envDuration("TEST_DUR_BAD", time.Minute); err == nil {
		t.Error("envDuration(TEST_DUR_BAD) expected error, got nil")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Port)
	}
	if cfg.MinSimilarityThreshold != 0.6 {
		t.Errorf("MinSimilarityThreshold = %v, want 0.6", cfg.MinSimilarityThreshold)
	}
	if cfg.DefaultTopK != 5 {
		t.Errorf("DefaultTopK = %d, want 5", cfg.DefaultTopK)
	}
	if cfg.RetrievalMultiplier != 3 {
		t.Errorf("RetrievalMultiplier = %d, want 3", cfg.RetrievalMultiplier)
	}
	if cfg.EmbeddingDimensions != 768 {
		t.Errorf("EmbeddingDimensions = %d, want 768", cfg.EmbeddingDimensions)
	}
	if cfg.AlwaysUseLLMReranking {
		t.Error("AlwaysUseLLMReranking should default to false")
	}
	if cfg.StorageDriver != DriverPostgres {
		t.Errorf("StorageDriver = %q, want %q", cfg.StorageDriver, DriverPostgres)
	}
}

func TestLoadBadValue(t *testing.T) {
	t.Setenv("DEFAULT_TOP_K", "five")
	if _, err := Load(); err == nil {
		t.Error("Load() expected error for DEFAULT_TOP_K=five, got nil")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		cfg := base()
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error: %v", err)
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := base()
		cfg.StorageDriver = "etcd"
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for unknown driver")
		}
	})

	t.Run("postgres requires url", func(t *testing.T) {
		cfg := base()
		cfg.StorageDriver = DriverPostgres
		cfg.DatabaseURL = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for missing DATABASE_URL")
		}
	})

	t.Run("threshold range", func(t *testing.T) {
		cfg := base()
		cfg.MinSimilarityThreshold = 1.5
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for threshold > 1")
		}
	})

	t.Run("top k range", func(t *testing.T) {
		cfg := base()
		cfg.DefaultTopK = 21
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for top k > 20")
		}
	})

	t.Run("multiplier", func(t *testing.T) {
		cfg := base()
		cfg.RetrievalMultiplier = 0
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() expected error for zero multiplier")
		}
	})
}

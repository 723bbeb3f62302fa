package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "STORE_BACKEND")
	unsetEnvWithCleanup(t, "BANKS")
	unsetEnvWithCleanup(t, "BRANCH_PREFIXES")
	unsetEnvWithCleanup(t, "PORT")
	unsetEnvWithCleanup(t, "SERVER_PORT")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StoreBackend != "memory" {
		t.Fatalf("expected default StoreBackend memory, got %q", cfg.StoreBackend)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default ServerPort 8080, got %q", cfg.ServerPort)
	}
	if len(cfg.Banks) != 3 || cfg.Banks[0] != "HDFC" || cfg.Banks[1] != "ICICI" || cfg.Banks[2] != "SBI" {
		t.Fatalf("expected default bank roster, got %v", cfg.Banks)
	}
	if cfg.BranchPrefixes["SBIN"] != "SBI" {
		t.Fatalf("expected SBIN to route to SBI, got %q", cfg.BranchPrefixes["SBIN"])
	}
	if cfg.VIDKeyHigh != 0x1234567890123456 || cfg.VIDKeyLow != 0x7890123456789012 {
		t.Fatalf("unexpected default cipher key halves: %x %x", cfg.VIDKeyHigh, cfg.VIDKeyLow)
	}
}

func TestLoadConfig_RejectsUnknownStoreBackend(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "STORE_BACKEND", "mongodb")

	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Fatal("expected error for unsupported store backend")
	}
}

func TestLoadConfig_ParsesBankAndBranchOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "BANKS", "axis, hdfc")
	setEnvWithCleanup(t, "BRANCH_PREFIXES", "UTIB=AXIS,HDFC=HDFC")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfg.Banks) != 2 || cfg.Banks[0] != "AXIS" || cfg.Banks[1] != "HDFC" {
		t.Fatalf("expected overridden bank roster, got %v", cfg.Banks)
	}
	if cfg.BranchPrefixes["UTIB"] != "AXIS" {
		t.Fatalf("expected UTIB to route to AXIS, got %q", cfg.BranchPrefixes["UTIB"])
	}
	if _, ok := cfg.BranchPrefixes["SBIN"]; ok {
		t.Fatal("expected defaults to be replaced, not merged")
	}
}

func TestLoadConfig_PortEnvOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8080")
	setEnvWithCleanup(t, "PORT", "9090")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Fatalf("expected PORT to win, got %q", cfg.ServerPort)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

package main

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("DOMOPHONE_CONFIG")
	defer os.Setenv("DOMOPHONE_CONFIG", originalEnv) //nolint:errcheck // Test env restore

	os.Setenv("DOMOPHONE_CONFIG", "/nonexistent/path/config.yaml") //nolint:errcheck // Test env

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestGetConfigPath(t *testing.T) {
	originalEnv := os.Getenv("DOMOPHONE_CONFIG")
	defer os.Setenv("DOMOPHONE_CONFIG", originalEnv) //nolint:errcheck // Test env restore

	os.Setenv("DOMOPHONE_CONFIG", "") //nolint:errcheck // Test env
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	os.Setenv("DOMOPHONE_CONFIG", "/etc/domophone/config.yaml") //nolint:errcheck // Test env
	if got := getConfigPath(); got != "/etc/domophone/config.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", got)
	}
}

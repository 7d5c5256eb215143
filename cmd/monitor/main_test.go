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

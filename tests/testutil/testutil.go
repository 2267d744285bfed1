package testutil

import (
	"os"
	"testing"
)

// RequireTestEnvironment fails the test immediately unless GO_ENV is set
// to "test". This guards the suites from ever touching a development or
// production database.
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	if env := os.Getenv("GO_ENV"); env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: tests must run with GO_ENV=test (current: %q)", env)
	}
}

// MustSetTestEnvironment forces GO_ENV=test for the current process.
// Call it first thing in a suite's SetupSuite, before any configuration
// is loaded.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("Failed to set GO_ENV=test: %v", err)
	}
	RequireTestEnvironment(t)
}

package utils

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSetupLogging(t *testing.T) {
	cases := []struct {
		input    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"not-a-level", logrus.InfoLevel},
	}
	for _, c := range cases {
		logger := SetupLogging(c.input)
		if logger.Level != c.expected {
			t.Errorf("Expected level %v for input %q, got %v", c.expected, c.input, logger.Level)
		}
	}
}

func TestSetupLoggingEnvFallback(t *testing.T) {
	t.Setenv("SHEETSTORE_LOG_LEVEL", "debug")
	logger := SetupLogging("")
	if logger.Level != logrus.DebugLevel {
		t.Errorf("Expected the environment level to apply, got %v", logger.Level)
	}

	// an explicit level wins over the environment
	logger = SetupLogging("error")
	if logger.Level != logrus.ErrorLevel {
		t.Errorf("Expected the explicit level to win, got %v", logger.Level)
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("SHEETSTORE_TEST_VALUE", "set")
	if got := GetEnvOrDefault("SHEETSTORE_TEST_VALUE", "fallback"); got != "set" {
		t.Errorf("Expected 'set', got %q", got)
	}
	if got := GetEnvOrDefault("SHEETSTORE_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("Expected 'fallback', got %q", got)
	}

	t.Setenv("SHEETSTORE_TEST_EMPTY", "")
	if got := GetEnvOrDefault("SHEETSTORE_TEST_EMPTY", "fallback"); got != "fallback" {
		t.Errorf("Expected an empty variable to fall back, got %q", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("SHEETSTORE_TEST_INT", "42")
	if got := GetEnvInt("SHEETSTORE_TEST_INT", 7); got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}
	if got := GetEnvInt("SHEETSTORE_TEST_INT_UNSET", 7); got != 7 {
		t.Errorf("Expected the default 7, got %d", got)
	}

	t.Setenv("SHEETSTORE_TEST_INT", "not-a-number")
	if got := GetEnvInt("SHEETSTORE_TEST_INT", 7); got != 7 {
		t.Errorf("Expected the default for a malformed value, got %d", got)
	}
}

func TestLoadEnvironmentVariables(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "SHEETSTORE_DATABASE=db/test.db\nSHEETSTORE_DATAMODEL=db/model.xlsx\n"
	if err := os.WriteFile(envFile, []byte(content), 0o644); err != nil {
		t.Fatalf("Cannot write env file: %v", err)
	}
	t.Setenv("SHEETSTORE_DATABASE", "")
	os.Unsetenv("SHEETSTORE_DATABASE")
	t.Setenv("SHEETSTORE_DATAMODEL", "")
	os.Unsetenv("SHEETSTORE_DATAMODEL")

	if !LoadEnvironmentVariables(envFile, quietLogger()) {
		t.Error("Expected the env file to satisfy the required variables")
	}
	if got := os.Getenv("SHEETSTORE_DATABASE"); got != "db/test.db" {
		t.Errorf("Expected the env file value to be loaded, got %q", got)
	}
}

func TestLoadEnvironmentVariablesMissing(t *testing.T) {
	t.Setenv("SHEETSTORE_DATABASE", "")
	os.Unsetenv("SHEETSTORE_DATABASE")
	t.Setenv("SHEETSTORE_DATAMODEL", "")
	os.Unsetenv("SHEETSTORE_DATAMODEL")

	missingFile := filepath.Join(t.TempDir(), ".env")
	if LoadEnvironmentVariables(missingFile, quietLogger()) {
		t.Error("Expected missing required variables to be reported")
	}
}

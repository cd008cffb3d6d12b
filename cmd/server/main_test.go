package main

import (
	"testing"

	"nexuserp/backend/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short"})
	if err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestNewLoggerAcceptsLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "nonsense"} {
		logger, err := newLogger(level)
		if err != nil {
			t.Fatalf("level %q: %v", level, err)
		}
		_ = logger.Sync()
	}
}

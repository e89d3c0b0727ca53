package main

import (
	"testing"

	"cabangpos/backend/internal/config"
)

func TestValidateSecurityConfigRejectsShortSecret(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short"})
	if err == nil {
		t.Fatalf("expected short AUTH_SECRET to be rejected")
	}
}

func TestValidateSecurityConfigRequiresSecretInProduction(t *testing.T) {
	err := validateSecurityConfig(config.Config{Env: "production"})
	if err == nil {
		t.Fatalf("expected missing AUTH_SECRET in production to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef"})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestValidateSecurityConfigAllowsEmptySecretInDev(t *testing.T) {
	err := validateSecurityConfig(config.Config{Env: "development"})
	if err != nil {
		t.Fatalf("expected dev config without secret to pass, got %v", err)
	}
}

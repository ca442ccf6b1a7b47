package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Presence.ClientBuffer = 0
	cfg.Presence.DisconnectPolicy = "forget"
	cfg.Profile.Source = "ldap"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"client_buffer", "disconnect_policy", "profile.source"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got %v", want, err)
		}
	}

	cfg = Default()
	cfg.Profile.Source = "http"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "base_url") {
		t.Fatalf("expected base_url error, got %v", err)
	}
}

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected resolved path %s, got %s", path, resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default config file to be written: %v", err)
	}
	if cfg.Presence.ClientBuffer != 64 || cfg.Presence.DisconnectPolicy != "remove" || !cfg.Presence.EchoToSender {
		t.Fatalf("unexpected presence defaults: %+v", cfg.Presence)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
addr: ":9090"
presence:
  disconnect_policy: retain
  client_buffer: 8
profile:
  source: none
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("WIREMAP_PROFILE_TIMEOUT", "750ms")
	t.Setenv("WIREMAP_PRESENCE_ECHO_TO_SENDER", "false")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.Presence.DisconnectPolicy != "retain" || cfg.Presence.ClientBuffer != 8 {
		t.Errorf("unexpected presence section: %+v", cfg.Presence)
	}
	if cfg.Presence.EchoToSender {
		t.Error("env should disable echo_to_sender")
	}
	if cfg.Profile.Source != "none" || cfg.Profile.Timeout != 750*time.Millisecond {
		t.Errorf("unexpected profile section: %+v", cfg.Profile)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Presence.MaxMessageBytes != 4096 || cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":7000", LogLevel: "debug"})
	if cfg.Addr != ":7000" || cfg.LogLevel != "debug" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Fatalf("zero override must not clear value: %v", cfg.ShutdownTimeout)
	}
}

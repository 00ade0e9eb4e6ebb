package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != "5050" {
		t.Errorf("Port = %q, want 5050", cfg.Server.Port)
	}
	if cfg.Wyze.TokenFile != ".wyze_tokens.json" {
		t.Errorf("TokenFile = %q", cfg.Wyze.TokenFile)
	}
	if cfg.Wyze.AuthURL != "https://auth-prod.api.wyze.com" {
		t.Errorf("AuthURL = %q", cfg.Wyze.AuthURL)
	}
	if cfg.Wyze.APIURL != "https://api.wyzecam.com/app" {
		t.Errorf("APIURL = %q", cfg.Wyze.APIURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("WYZE_EMAIL", "cam@example.com")
	t.Setenv("WYZE_API_URL", "http://localhost:9999")

	cfg := Load()
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Wyze.Email != "cam@example.com" {
		t.Errorf("Email = %q", cfg.Wyze.Email)
	}
	if cfg.Wyze.APIURL != "http://localhost:9999" {
		t.Errorf("APIURL = %q", cfg.Wyze.APIURL)
	}
}

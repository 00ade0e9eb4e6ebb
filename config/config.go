package config

import (
	"os"
)

type Config struct {
	Server ServerConfig
	Wyze   WyzeConfig
}

type ServerConfig struct {
	Port     string
	APIToken string
}

type WyzeConfig struct {
	Email        string
	Password     string
	APIKey       string
	KeyID        string
	TokenFile    string
	AuthURL      string
	APIURL       string
	SignalingURL string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "5050"),
			APIToken: getEnv("API_TOKEN", ""),
		},
		Wyze: WyzeConfig{
			Email:        getEnv("WYZE_EMAIL", ""),
			Password:     getEnv("WYZE_PASSWORD", ""),
			APIKey:       getEnv("API_KEY", ""),
			KeyID:        getEnv("API_ID", ""),
			TokenFile:    getEnv("TOKEN_FILE", ".wyze_tokens.json"),
			AuthURL:      getEnv("WYZE_AUTH_URL", "https://auth-prod.api.wyze.com"),
			APIURL:       getEnv("WYZE_API_URL", "https://api.wyzecam.com/app"),
			SignalingURL: getEnv("WYZE_SIGNALING_URL", "https://webrtc.api.wyze.com"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

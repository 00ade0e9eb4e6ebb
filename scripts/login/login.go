package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"wyze-camera-server/config"
	"wyze-camera-server/services"
	"wyze-camera-server/store"
)

// One-shot login: exchanges the configured credentials for a token pair and
// writes the token file the server picks up on startup. Useful for seeding
// tokens on a box that should never see the account password.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if cfg.Wyze.Email == "" || cfg.Wyze.Password == "" {
		log.Fatal("Set WYZE_EMAIL and WYZE_PASSWORD (plus API_KEY and API_ID for accounts with 2FA)")
	}

	credStore := store.NewCredentialStore(cfg.Wyze.TokenFile)
	wyze := services.NewWyzeService(cfg.Wyze, credStore)

	fmt.Printf("Logging in as %s...\n", cfg.Wyze.Email)
	cred, err := wyze.Login()
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}

	fmt.Printf("Tokens written to %s\n", cfg.Wyze.TokenFile)
	if expiresAt, ok := cred.TokenExpiresAt(); ok {
		fmt.Printf("Access token expires %s\n", expiresAt.Format("2006-01-02 15:04:05 MST"))
	}
}

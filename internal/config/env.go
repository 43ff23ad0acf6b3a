package config

import (
	"log/slog"

	"github.com/joho/godotenv"
)

// envFiles are tried in order; the first one that loads wins.
var envFiles = []string{".env", ".env.local"}

// loadEnvFile loads variables from .env/.env.local without overriding the
// existing process environment.
func loadEnvFile() {
	for _, envPath := range envFiles {
		if err := godotenv.Load(envPath); err == nil {
			slog.Debug("Loaded environment variables", "path", envPath)
			return
		}
	}
}

package config

import (
	"log/slog"

	"github.com/joho/godotenv"
)

// Load reads .env into the process environment when the file exists;
// otherwise the system environment is used as-is.
func Load() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Info("no .env file found, using system environment")
	}
}

package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv reads .env (or the file named by ENV_FILE) into the process
// environment. Variables already set are not overridden; a missing file is fine.
func LoadEnv() {
	file := os.Getenv("ENV_FILE")
	if file == "" {
		file = ".env"
	}
	_ = godotenv.Load(file)
}

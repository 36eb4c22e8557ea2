package main

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment
type Config struct {
	Addr       string
	DBPath     string
	JWTSecret  string
	ClientDir  string
	PublicURL  string
	TuningFile string
}

// LoadConfig reads an optional .env file and then the environment.
// Variables already set win over the file.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}
	cfg := Config{
		Addr:       envOr("ADDR", ":8080"),
		DBPath:     envOr("DB_PATH", "game.db"),
		JWTSecret:  os.Getenv("JWT_SECRET_KEY"),
		ClientDir:  os.Getenv("CLIENT_DIR"),
		PublicURL:  strings.TrimRight(envOr("PUBLIC_URL", "http://localhost:8080"), "/"),
		TuningFile: os.Getenv("TUNING_FILE"),
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

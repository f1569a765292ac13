// Package config loads server settings from the environment, with an
// optional .env file for development. Explicit env vars always win.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr       string
	DBPath     string
	RateBurst  int
	RatePerMin int
}

func Load() Config {
	// Missing .env is fine; godotenv never overrides existing vars.
	_ = godotenv.Load()

	addr := envString("PARLEY_ADDR", "")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":8080"
		}
	}
	return Config{
		Addr:       addr,
		DBPath:     envString("PARLEY_DB", "parley.db"),
		RatePerMin: envInt("PARLEY_RL_AUTH_PER_MIN", 10),
		RateBurst:  envInt("PARLEY_RL_AUTH_BURST", 5),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

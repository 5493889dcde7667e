package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment with a
// .env file as optional local override.
type Config struct {
	ListenAddr    string
	LogLevel      string
	DatabaseURL   string // empty disables persistence
	SweepInterval time.Duration
	ChatRetention int
	PairingSeed   int64
}

func Load() (Config, error) {
	_ = godotenv.Load() // absent .env is fine

	c := Config{
		ListenAddr:    ":8080",
		LogLevel:      "info",
		SweepInterval: time.Second,
		PairingSeed:   time.Now().UnixNano(),
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	c.DatabaseURL = os.Getenv("DATABASE_URL")
	if v := os.Getenv("SWEEP_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return Config{}, fmt.Errorf("bad SWEEP_INTERVAL_MS %q", v)
		}
		c.SweepInterval = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv("CHAT_RETENTION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("bad CHAT_RETENTION %q", v)
		}
		c.ChatRetention = n
	}
	return c, nil
}

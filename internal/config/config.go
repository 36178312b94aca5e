package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ConfigPath string
	StopFile   string
	LockFile   string

	LogFile  string
	LogLevel string

	// optional outputs
	DatabaseURL     string
	ControlAddr     string
	ControlHashKey  []byte
	ControlBlockKey []byte

	// poller
	StopPoll       time.Duration
	AttemptTimeout time.Duration
	PageTimeout    time.Duration
	BrowserBin     string
}

// FromEnv reads process settings, loading a .env file first when present.
func FromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		ConfigPath:  getenv("SLOTWATCH_CONFIG", "config.json"),
		StopFile:    getenv("SLOTWATCH_STOP_FILE", "stop_automation.txt"),
		LockFile:    getenv("SLOTWATCH_LOCK_FILE", "slotwatch.lock"),
		LogFile:     lookupenv("LOG_FILE", "slotwatch.log"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ControlAddr: os.Getenv("CONTROL_ADDR"),
		BrowserBin:  os.Getenv("BROWSER_BIN"),
	}

	var err error
	if cfg.StopPoll, err = seconds("STOP_POLL_SECONDS", "2"); err != nil {
		return Config{}, err
	}
	if cfg.AttemptTimeout, err = seconds("ATTEMPT_TIMEOUT_SECONDS", "90"); err != nil {
		return Config{}, err
	}
	if cfg.PageTimeout, err = seconds("PAGE_TIMEOUT_SECONDS", "30"); err != nil {
		return Config{}, err
	}

	if cfg.ControlAddr != "" {
		hashKey := os.Getenv("CONTROL_HASH_KEY")
		blockKey := os.Getenv("CONTROL_BLOCK_KEY")
		if hashKey == "" || blockKey == "" {
			return Config{}, fmt.Errorf("CONTROL_HASH_KEY and CONTROL_BLOCK_KEY are required with CONTROL_ADDR (run `slotwatch keys`)")
		}
		if cfg.ControlHashKey, err = decodeB64(hashKey); err != nil {
			return Config{}, fmt.Errorf("CONTROL_HASH_KEY: %w", err)
		}
		if cfg.ControlBlockKey, err = decodeB64(blockKey); err != nil {
			return Config{}, fmt.Errorf("CONTROL_BLOCK_KEY: %w", err)
		}
	}

	return cfg, nil
}

func seconds(k, def string) (time.Duration, error) {
	n, err := strconv.Atoi(getenv(k, def))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s", k)
	}
	return time.Duration(n) * time.Second, nil
}

// decodeB64 accepts the key itself or a path to a file holding it, for
// secret mounts.
func decodeB64(s string) ([]byte, error) {
	if b, err := os.ReadFile(s); err == nil {
		s = string(b)
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// lookupenv is getenv that keeps an explicitly empty value.
func lookupenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok {
		return v
	}
	return def
}

package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/JamesStuff/jimbo-cam/internal/env"
)

var ensureOnce sync.Once

func ensureEnvLoaded() {
	ensureOnce.Do(func() {
		_ = env.Ensure()
	})
}

// String returns the trimmed environment variable or fallback when unset.
func String(key, fallback string) string {
	ensureEnvLoaded()
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// Int returns an integer environment variable or fallback when invalid.
func Int(key string, fallback int) int {
	ensureEnvLoaded()
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

// Seconds parses a duration given as a plain number of seconds
// (fractions allowed, matching PRUSA_HTTP_TIMEOUT=10 or =2.5) or
// returns fallback when unset or invalid.
func Seconds(key string, fallback time.Duration) time.Duration {
	ensureEnvLoaded()
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed > 0 {
			return time.Duration(parsed * float64(time.Second))
		}
	}
	return fallback
}

package config

import (
	"strings"
	"time"

	"github.com/JamesStuff/jimbo-cam/internal/camera"
	"github.com/pkg/errors"
)

// Environment keys, kept compatible with the original uploader so an
// existing config env file keeps working.
const (
	EnvURL         = "PRUSA_URL"
	EnvToken       = "PRUSA_TOKEN"
	EnvFingerprint = "PRUSA_FINGERPRINT"
	EnvIntervalSec = "PRUSA_INTERVAL_SEC"
	EnvWidth       = "PRUSA_WIDTH"
	EnvHeight      = "PRUSA_HEIGHT"
	EnvJPEGQuality = "PRUSA_JPEG_QUALITY"
	EnvHTTPTimeout = "PRUSA_HTTP_TIMEOUT"
	EnvAFMode      = "PRUSA_AF_MODE"
	EnvAFPosition  = "PRUSA_AF_POSITION"
)

// DefaultURL is the Prusa Connect snapshot endpoint.
const DefaultURL = "https://webcam.connect.prusa3d.com/c/snapshot"

// Config is the fully resolved daemon configuration. The daemon consumes
// only these values; flag parsing and interactive setup live in cmd.
type Config struct {
	URL         string
	Token       string
	Fingerprint string
	Interval    time.Duration
	Width       int
	Height      int
	JPEGQuality int
	HTTPTimeout time.Duration
	Focus       camera.FocusPolicy
}

// Load resolves the configuration from the environment (after env-file
// loading) and validates the startup-fatal parts: a missing token and an
// invalid focus policy must stop the process before the loop starts.
func Load() (Config, error) {
	cfg := Config{
		URL:         String(EnvURL, DefaultURL),
		Token:       String(EnvToken, ""),
		Fingerprint: String(EnvFingerprint, ""),
		Interval:    time.Duration(Int(EnvIntervalSec, 10)) * time.Second,
		Width:       Int(EnvWidth, 1280),
		Height:      Int(EnvHeight, 720),
		JPEGQuality: Int(EnvJPEGQuality, 85),
		HTTPTimeout: Seconds(EnvHTTPTimeout, 10*time.Second),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	focus, err := camera.ParseFocusPolicy(String(EnvAFMode, "cont"), String(EnvAFPosition, ""))
	if err != nil {
		return Config{}, err
	}
	cfg.Focus = focus
	return cfg, nil
}

// Validate checks the startup-fatal invariants other than focus policy.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return errors.Errorf("missing camera token: set %s", EnvToken)
	}
	if strings.TrimSpace(c.URL) == "" {
		return errors.Errorf("empty upload URL: set %s", EnvURL)
	}
	if c.Interval <= 0 {
		return errors.Errorf("capture interval must be positive: check %s", EnvIntervalSec)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Errorf("invalid resolution %dx%d: check %s/%s", c.Width, c.Height, EnvWidth, EnvHeight)
	}
	if c.HTTPTimeout <= 0 {
		return errors.Errorf("HTTP timeout must be positive: check %s", EnvHTTPTimeout)
	}
	return nil
}

// Package identity manages the device fingerprint: a stable token the
// remote service uses to recognize this camera across restarts.
package identity

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const fingerprintFileName = "fingerprint.txt"

// FilePath returns the fingerprint location inside the given config dir.
func FilePath(configDir string) string {
	return filepath.Join(configDir, fingerprintFileName)
}

// Resolve returns the device fingerprint. An explicit value wins and
// touches no storage. Otherwise the persisted value at path is reused,
// or a fresh 128-bit hex identifier is generated and persisted. A write
// failure on generation is fatal to the caller: restarting with a
// non-durable fingerprint would fragment the remote record for this
// device.
func Resolve(explicit, path string) (string, error) {
	if fp := strings.TrimSpace(explicit); fp != "" {
		return fp, nil
	}
	if data, err := os.ReadFile(path); err == nil {
		if fp := strings.TrimSpace(string(data)); fp != "" {
			log.Info().Str("fingerprint", fp).Msg("loaded existing fingerprint")
			return fp, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", errors.Wrapf(err, "read fingerprint file %s", path)
	}

	fp := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrapf(err, "create fingerprint dir for %s", path)
	}
	if err := os.WriteFile(path, []byte(fp), 0o644); err != nil {
		return "", errors.Wrapf(err, "persist fingerprint to %s", path)
	}
	log.Info().Str("fingerprint", fp).Msg("generated new fingerprint")
	return fp, nil
}

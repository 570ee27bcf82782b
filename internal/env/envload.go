package env

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const configDirName = "jimbo-cam"

var (
	loadOnce    sync.Once
	loadedPaths []string
	loadErr     error
)

// Ensure loads environment files exactly once: first the daemon's own
// config file under the user config dir (written by `jimbocam setup`),
// then the first .env found from the current working directory up to
// the filesystem root. Values already present in the environment win.
// Subsequent calls are no-ops.
func Ensure() error {
	// Keep unit tests hermetic: avoid picking up developer-local env files
	// by default. Opt-in with GOTEST_LOAD_DOTENV=1 when running `go test`.
	if runningUnderGoTest() && os.Getenv("GOTEST_LOAD_DOTENV") != "1" {
		return nil
	}
	loadOnce.Do(func() {
		for _, path := range candidatePaths() {
			if err := godotenv.Load(path); err != nil {
				loadErr = err
				log.Warn().Err(err).Str("envfile", path).Msg("jimbo-cam: load env file failed")
				continue
			}
			loadedPaths = append(loadedPaths, path)
			log.Debug().Str("envfile", path).Msg("jimbo-cam: loaded env file")
		}
	})
	return loadErr
}

// LoadedPaths returns the env files that were actually loaded.
func LoadedPaths() []string {
	return loadedPaths
}

// ConfigDir returns the per-user configuration directory for the daemon.
// The fingerprint, config env file and cycle journal live here.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, configDirName), nil
}

// ConfigFilePath returns the canonical location of the daemon's env file.
func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "jimbo-cam-config.env"), nil
}

func candidatePaths() []string {
	var paths []string
	if cfg, err := ConfigFilePath(); err == nil {
		if info, err := os.Stat(cfg); err == nil && !info.IsDir() {
			paths = append(paths, cfg)
		}
	}
	if dotenv, err := findDotEnv(); err == nil && dotenv != "" {
		paths = append(paths, dotenv)
	}
	return paths
}

func runningUnderGoTest() bool {
	if strings.HasSuffix(os.Args[0], ".test") {
		return true
	}
	for _, arg := range os.Args[1:] {
		if strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	return false
}

func findDotEnv() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(wd, ".env")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			return "", nil
		}
		wd = parent
	}
}

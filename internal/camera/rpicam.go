package camera

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// stillBinaries lists the libcamera still-capture tools in preference
// order. Raspberry Pi OS Bookworm ships rpicam-still; older releases
// ship libcamera-still.
var stillBinaries = []string{"rpicam-still", "libcamera-still"}

// StillDevice captures stills by running the libcamera command-line tool.
// The JPEG is read from the tool's stdout, so nothing touches the
// filesystem per cycle.
type StillDevice struct {
	binary string
	mu     sync.Mutex
}

// NewStillDevice locates a libcamera still tool on PATH.
func NewStillDevice() (*StillDevice, error) {
	for _, name := range stillBinaries {
		if path, err := exec.LookPath(name); err == nil {
			log.Debug().Str("binary", path).Msg("using libcamera still tool")
			return &StillDevice{binary: path}, nil
		}
	}
	return nil, errors.Errorf("no libcamera still tool found on PATH (tried %s)",
		strings.Join(stillBinaries, ", "))
}

// Open claims the hardware for one session. A session left unclosed blocks
// every later Open, which is reported as a busy device rather than a hang.
func (d *StillDevice) Open(cfg StillConfig) (Session, error) {
	if !d.mu.TryLock() {
		return nil, errors.New("camera device busy: previous session not released")
	}
	return &stillSession{device: d, cfg: cfg}, nil
}

type stillSession struct {
	device *StillDevice
	cfg    StillConfig
	closed bool
}

func (s *stillSession) Capture(ctx context.Context) ([]byte, error) {
	if s.closed {
		return nil, errors.New("capture on closed session")
	}
	args := []string{
		"--output", "-",
		"--width", strconv.Itoa(s.cfg.Width),
		"--height", strconv.Itoa(s.cfg.Height),
		"--quality", strconv.Itoa(s.cfg.Quality),
		"--encoding", "jpg",
		"--nopreview",
		"--timeout", strconv.Itoa(int(defaultSettle.Milliseconds())),
	}
	args = append(args, focusArgs(s.cfg.Focus)...)

	cmd := exec.CommandContext(ctx, s.device.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, errors.Wrapf(err, "%s failed: %s", s.device.binary, detail)
		}
		return nil, errors.Wrapf(err, "%s failed", s.device.binary)
	}
	return stdout.Bytes(), nil
}

func (s *stillSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.device.mu.Unlock()
	return nil
}

func focusArgs(policy FocusPolicy) []string {
	switch policy.Mode {
	case FocusSingle:
		return []string{"--autofocus-mode", "auto", "--autofocus-on-capture"}
	case FocusManual:
		return []string{
			"--autofocus-mode", "manual",
			"--lens-position", fmt.Sprintf("%g", policy.LensPosition),
		}
	default:
		return []string{"--autofocus-mode", "continuous"}
	}
}

package camera

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FocusMode selects the autofocus behavior applied to the camera.
type FocusMode int

const (
	FocusContinuous FocusMode = iota
	FocusSingle
	FocusManual
)

func (m FocusMode) String() string {
	switch m {
	case FocusContinuous:
		return "continuous"
	case FocusSingle:
		return "single"
	case FocusManual:
		return "manual"
	default:
		return "unknown"
	}
}

// FocusPolicy describes the autofocus configuration applied once when a
// session is established. LensPosition is meaningful only for FocusManual.
type FocusPolicy struct {
	Mode         FocusMode
	LensPosition float64
}

// ParseFocusPolicy validates an autofocus mode string plus optional lens
// position. Manual mode requires a finite numeric position; anything else
// is a configuration error, never a runtime retry condition.
func ParseFocusPolicy(mode, position string) (FocusPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "cont", "continuous":
		return FocusPolicy{Mode: FocusContinuous}, nil
	case "auto", "af", "single":
		return FocusPolicy{Mode: FocusSingle}, nil
	case "man", "manual":
		position = strings.TrimSpace(position)
		if position == "" {
			return FocusPolicy{}, errors.New("manual focus mode requires a lens position, e.g. 1.2")
		}
		lens, err := strconv.ParseFloat(position, 64)
		if err != nil {
			return FocusPolicy{}, errors.Wrapf(err, "invalid manual lens position %q", position)
		}
		if math.IsNaN(lens) || math.IsInf(lens, 0) {
			return FocusPolicy{}, errors.Errorf("manual lens position %q is not finite", position)
		}
		return FocusPolicy{Mode: FocusManual, LensPosition: lens}, nil
	default:
		return FocusPolicy{}, errors.Errorf("unknown autofocus mode %q", mode)
	}
}

// StillConfig carries the capture parameters applied when a session opens.
// Quality follows the JPEG encoder convention of 1-100; out-of-range values
// are surfaced by the encoder as a capture error rather than validated here.
type StillConfig struct {
	Width   int
	Height  int
	Quality int
	Focus   FocusPolicy
}

// Device owns the physical camera. Open hands out the single live session;
// the hardware stays locked until that session is closed.
type Device interface {
	Open(cfg StillConfig) (Session, error)
}

// Session is exclusive ownership of the camera between Open and Close.
// Close must run on every exit path so the next cycle can acquire the
// hardware again.
type Session interface {
	Capture(ctx context.Context) ([]byte, error)
	Close() error
}

// defaultSettle gives exposure and autofocus a moment to converge between
// session start and the capture trigger.
const defaultSettle = 200 * time.Millisecond

// Acquirer produces one encoded still per call, scoping the camera session
// to the duration of the call.
type Acquirer struct {
	device Device
	cfg    StillConfig
	settle time.Duration
	sleep  func(time.Duration)
}

// NewAcquirer builds an acquirer over the given device.
func NewAcquirer(device Device, cfg StillConfig) (*Acquirer, error) {
	if device == nil {
		return nil, errors.New("camera device cannot be nil")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errors.Errorf("invalid capture resolution %dx%d", cfg.Width, cfg.Height)
	}
	return &Acquirer{
		device: device,
		cfg:    cfg,
		settle: defaultSettle,
		sleep:  time.Sleep,
	}, nil
}

// Acquire opens a session, waits for convergence, triggers the capture and
// releases the session. The release is deferred so the failure path frees
// the hardware too.
func (a *Acquirer) Acquire(ctx context.Context) ([]byte, error) {
	session, err := a.device.Open(a.cfg)
	if err != nil {
		return nil, errors.Wrap(err, "open camera session")
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("close camera session failed")
		}
	}()

	if a.settle > 0 {
		a.sleep(a.settle)
	}
	data, err := session.Capture(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "capture still")
	}
	if len(data) == 0 {
		return nil, errors.New("capture produced no image data")
	}
	log.Debug().Int("bytes", len(data)).Msg("captured image")
	return data, nil
}

package camera

import (
	"testing"
)

func TestStillDeviceRequiresBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if _, err := NewStillDevice(); err == nil {
		t.Fatal("expected error when no libcamera still tool is on PATH")
	}
}

func TestStillDeviceExclusiveOwnership(t *testing.T) {
	device := &StillDevice{binary: "rpicam-still"}
	cfg := StillConfig{Width: 640, Height: 480, Quality: 85}

	first, err := device.Open(cfg)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if _, err := device.Open(cfg); err == nil {
		t.Fatal("second Open must fail while the session is held")
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Close is idempotent and the device is reusable afterwards.
	if err := first.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	second, err := device.Open(cfg)
	if err != nil {
		t.Fatalf("Open after release: %v", err)
	}
	_ = second.Close()
}

func TestFocusArgs(t *testing.T) {
	tests := []struct {
		name   string
		policy FocusPolicy
		want   []string
	}{
		{"continuous", FocusPolicy{Mode: FocusContinuous}, []string{"--autofocus-mode", "continuous"}},
		{"single", FocusPolicy{Mode: FocusSingle}, []string{"--autofocus-mode", "auto", "--autofocus-on-capture"}},
		{"manual", FocusPolicy{Mode: FocusManual, LensPosition: 1.2}, []string{"--autofocus-mode", "manual", "--lens-position", "1.2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := focusArgs(tt.policy)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("arg %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/JamesStuff/jimbo-cam/internal/journal"
	"github.com/JamesStuff/jimbo-cam/internal/uploader"
	"github.com/pkg/errors"
)

type stubAcquirer struct {
	mu    sync.Mutex
	data  []byte
	err   error
	calls int
}

func (s *stubAcquirer) Acquire(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

type stubUploader struct {
	mu       sync.Mutex
	outcomes []uploader.Outcome
	calls    int
}

func (s *stubUploader) Upload(ctx context.Context, jpeg []byte) uploader.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.outcomes) == 0 {
		return uploader.Outcome{Kind: uploader.Success, StatusCode: 200}
	}
	out := s.outcomes[0]
	if len(s.outcomes) > 1 {
		s.outcomes = s.outcomes[1:]
	}
	return out
}

type stubRecorder struct {
	mu     sync.Mutex
	cycles []journal.Cycle
}

func (s *stubRecorder) Record(ctx context.Context, c journal.Cycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles = append(s.cycles, c)
	return nil
}

func newTestLoop(t *testing.T, cfg Config) *Loop {
	t.Helper()
	if cfg.Acquirer == nil {
		cfg.Acquirer = &stubAcquirer{data: []byte("jpeg")}
	}
	if cfg.Uploader == nil {
		cfg.Uploader = &stubUploader{}
	}
	loop, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return loop
}

func TestEscalatedDelayClamp(t *testing.T) {
	tests := []struct {
		base time.Duration
		want time.Duration
	}{
		{10 * time.Second, 30 * time.Second},
		{50 * time.Second, 120 * time.Second},
		{1 * time.Second, 15 * time.Second},
		{5 * time.Second, 15 * time.Second},
		{40 * time.Second, 120 * time.Second},
	}
	for _, tt := range tests {
		if got := EscalatedDelay(tt.base); got != tt.want {
			t.Fatalf("EscalatedDelay(%s) = %s, want %s", tt.base, got, tt.want)
		}
	}
}

func TestSuccessResetsDelayToBase(t *testing.T) {
	up := &stubUploader{outcomes: []uploader.Outcome{
		{Kind: uploader.TransportError, Err: errors.New("dial tcp: refused")},
		{Kind: uploader.Success, StatusCode: 200},
	}}
	loop := newTestLoop(t, Config{BaseInterval: 10 * time.Second, Uploader: up})

	loop.runCycle(context.Background())
	if got := loop.NextDelay(); got != 30*time.Second {
		t.Fatalf("after failure expected 30s, got %s", got)
	}
	loop.runCycle(context.Background())
	if got := loop.NextDelay(); got != 10*time.Second {
		t.Fatalf("after success expected base 10s, got %s", got)
	}
}

func TestAllFailureKindsShareEscalationPath(t *testing.T) {
	base := 10 * time.Second
	escalated := 30 * time.Second

	tests := []struct {
		name    string
		acquire *stubAcquirer
		upload  *stubUploader
	}{
		{
			name:    "capture error",
			acquire: &stubAcquirer{err: errors.New("device busy")},
			upload:  &stubUploader{},
		},
		{
			name:    "client error 401",
			acquire: &stubAcquirer{data: []byte("jpeg")},
			upload:  &stubUploader{outcomes: []uploader.Outcome{{Kind: uploader.ClientError, StatusCode: 401, Body: "bad token"}}},
		},
		{
			name:    "transport error",
			acquire: &stubAcquirer{data: []byte("jpeg")},
			upload:  &stubUploader{outcomes: []uploader.Outcome{{Kind: uploader.TransportError, Err: errors.New("timeout")}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loop := newTestLoop(t, Config{BaseInterval: base, Acquirer: tt.acquire, Uploader: tt.upload})
			loop.runCycle(context.Background())
			if got := loop.NextDelay(); got != escalated {
				t.Fatalf("expected escalated delay %s, got %s", escalated, got)
			}
		})
	}
}

func TestCaptureFailureSkipsUpload(t *testing.T) {
	acquire := &stubAcquirer{err: errors.New("I/O error")}
	up := &stubUploader{}
	loop := newTestLoop(t, Config{BaseInterval: 10 * time.Second, Acquirer: acquire, Uploader: up})

	loop.runCycle(context.Background())
	if up.calls != 0 {
		t.Fatalf("upload must not run after a failed capture, got %d calls", up.calls)
	}
}

func TestStopInterruptsLongBackoffWait(t *testing.T) {
	// A 2-minute delay with a short wait step must react to a stop
	// request within a step or two, not after the full delay.
	loop := newTestLoop(t, Config{
		BaseInterval: 2 * time.Minute,
		WaitStep:     10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx)
	}()

	time.Sleep(30 * time.Millisecond) // let the loop enter its wait
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit promptly after stop request")
	}
}

func TestFailedCyclesNeverTerminateLoop(t *testing.T) {
	acquire := &stubAcquirer{err: errors.New("sensor offline")}
	loop := newTestLoop(t, Config{
		BaseInterval: time.Millisecond,
		WaitStep:     time.Millisecond,
		Acquirer:     acquire,
	})
	// Collapse the escalated wait so several failed cycles fit in the test.
	loop.timer = func(time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for {
		acquire.mu.Lock()
		calls := acquire.calls
		acquire.mu.Unlock()
		if calls >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("loop stopped cycling after failures")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestCyclesAreRecorded(t *testing.T) {
	recorder := &stubRecorder{}
	up := &stubUploader{outcomes: []uploader.Outcome{
		{Kind: uploader.ClientError, StatusCode: 401, Body: "bad token"},
		{Kind: uploader.Success, StatusCode: 200},
	}}
	loop := newTestLoop(t, Config{
		BaseInterval: 10 * time.Second,
		Uploader:     up,
		Recorder:     recorder,
	})

	loop.runCycle(context.Background())
	loop.runCycle(context.Background())

	if len(recorder.cycles) != 2 {
		t.Fatalf("expected 2 recorded cycles, got %d", len(recorder.cycles))
	}
	first, second := recorder.cycles[0], recorder.cycles[1]
	if first.Outcome != "client_error" || first.StatusCode != 401 || first.Detail != "bad token" {
		t.Fatalf("unexpected first cycle: %+v", first)
	}
	if second.Outcome != "success" || second.StatusCode != 200 {
		t.Fatalf("unexpected second cycle: %+v", second)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{Uploader: &stubUploader{}}); err == nil {
		t.Fatal("expected error for nil acquirer")
	}
	if _, err := New(Config{Acquirer: &stubAcquirer{}}); err == nil {
		t.Fatal("expected error for nil uploader")
	}
}

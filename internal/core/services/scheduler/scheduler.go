// Package scheduler implements the §5/§9 shared-resource discipline as an
// explicit Scheduler value: a mutex-protected record of
// {active_capture, enumeration_active} with the two guarded transitions
// enumeration uses to seize and release the radio. The scan process is not
// held here: the scan loop owns it, and the Scheduler reaches it only
// through the OnScanInterrupt callback. Grounded
// on the reference-counted lock in the teacher's sniffer capture package
// (Lock/Unlock/ExecuteWithLock), generalized from hop-pausing into full
// mutual exclusion between the scan loop, the capture engine, and
// enumeration.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
)

// Scheduler guards §5's invariants: active_captures_count <= 1, and
// enumeration_active => active_captures_count == 0 && scan_loop_inactive.
type Scheduler struct {
	mu sync.Mutex

	activeCaptureBSSID string
	enumerationActive  bool

	onScanInterrupt    func(ctx context.Context)
	onCaptureInterrupt func(ctx context.Context)

	logger *slog.Logger
}

// New builds a Scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{logger: logger}
}

// TryBeginCapture reports whether bssid may start a capture: no other
// capture is active and enumeration does not hold the radio.
func (s *Scheduler) TryBeginCapture(bssid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enumerationActive || s.activeCaptureBSSID != "" {
		return false
	}
	s.activeCaptureBSSID = bssid
	return true
}

func (s *Scheduler) EndCapture(bssid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeCaptureBSSID == bssid {
		s.activeCaptureBSSID = ""
	}
}

func (s *Scheduler) ActiveCaptureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeCaptureBSSID == "" {
		return 0
	}
	return 1
}

// ScanAllowed is the scan loop's precondition: active_captures == 0 &&
// !enumeration_active.
func (s *Scheduler) ScanAllowed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.enumerationActive && s.activeCaptureBSSID == ""
}

func (s *Scheduler) EnumerationActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enumerationActive
}

func (s *Scheduler) OnScanInterrupt(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onScanInterrupt = fn
}

func (s *Scheduler) OnCaptureInterrupt(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCaptureInterrupt = fn
}

// PauseForEnumeration atomically sets enumeration_active and tears down
// the scan loop's child and any active capture, holding the lock for the
// entirety of the transition including child-process teardown (§9).
func (s *Scheduler) PauseForEnumeration(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enumerationActive = true
	s.logger.Info("scheduler: pausing scan loop and capture engine for enumeration")

	if s.onScanInterrupt != nil {
		s.onScanInterrupt(ctx)
	}
	if s.onCaptureInterrupt != nil {
		s.onCaptureInterrupt(ctx)
	}
	s.activeCaptureBSSID = ""

	return nil
}

// ResumeFromEnumeration clears enumeration_active, returning the radio to
// the scan loop.
func (s *Scheduler) ResumeFromEnumeration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enumerationActive = false
	s.logger.Info("scheduler: resuming scan loop")
}
